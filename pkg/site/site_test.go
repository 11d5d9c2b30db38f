package site_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/pkg/site"
)

func staticItems(items ...any) site.CollectionFunc {
	return func(context.Context, site.CollectionAPI) ([]any, error) {
		return items, nil
	}
}

func TestLoad_DefaultDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := site.Load(root, func(*site.Config) (*site.Dirs, error) { return nil, nil })
	testza.AssertNil(t, err)

	testza.AssertEqual(t, site.DefaultDirs(), s.Dirs())
	testza.AssertEqual(t, root, s.InputDir())
	testza.AssertEqual(t, filepath.Join(root, "_site"), s.OutputDir())
}

func TestLoad_PartialDirsKeepDefaults(t *testing.T) {
	t.Parallel()

	s, err := site.Load(t.TempDir(), func(*site.Config) (*site.Dirs, error) {
		return &site.Dirs{Output: "public"}, nil
	})
	testza.AssertNil(t, err)
	testza.AssertEqual(t, site.Dirs{Input: ".", Output: "public"}, s.Dirs())
}

func TestLoad_RegistersInOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := site.Load(root, func(cfg *site.Config) (*site.Dirs, error) {
		testza.AssertEqual(t, root, cfg.Root())

		cfg.AddPassthroughCopy("static", "favicon.ico")
		cfg.AddPassthroughCopyTo("assets/robots.txt", "robots.txt")
		cfg.AddCollection("users", staticItems("a"))
		cfg.AddCollection("games", staticItems())
		return nil, nil
	})
	testza.AssertNil(t, err)

	testza.AssertEqual(t, []site.Rule{
		{Source: "static", Target: "static"},
		{Source: "favicon.ico", Target: "favicon.ico"},
		{Source: filepath.Join("assets", "robots.txt"), Target: "robots.txt"},
	}, s.Passthrough())
	testza.AssertEqual(t, []string{"users", "games"}, s.Collections())
	testza.AssertEqual(t, filepath.Join(root, "_site", "static"), s.TargetPath(s.Passthrough()[0]))
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup site.Setup
		want  string
	}{
		{
			name:  "nil setup",
			setup: nil,
			want:  "setup is nil",
		},
		{
			name: "setup error",
			setup: func(*site.Config) (*site.Dirs, error) {
				return nil, errors.New("boom")
			},
			want: "boom",
		},
		{
			name: "empty passthrough",
			setup: func(cfg *site.Config) (*site.Dirs, error) {
				cfg.AddPassthroughCopy("")
				return nil, nil
			},
			want: "passthrough path is empty",
		},
		{
			name: "duplicate collection",
			setup: func(cfg *site.Config) (*site.Dirs, error) {
				cfg.AddCollection("users", staticItems())
				cfg.AddCollection("users", staticItems())
				return nil, nil
			},
			want: `collection "users" registered twice`,
		},
		{
			name: "nil collection func",
			setup: func(cfg *site.Config) (*site.Dirs, error) {
				cfg.AddCollection("users", nil)
				return nil, nil
			},
			want: "has no function",
		},
		{
			name: "target escapes output",
			setup: func(cfg *site.Config) (*site.Dirs, error) {
				cfg.AddPassthroughCopyTo("static", "../static")
				return nil, nil
			},
			want: "escapes the output root",
		},
		{
			name: "output equals input",
			setup: func(*site.Config) (*site.Dirs, error) {
				return &site.Dirs{Input: "src", Output: "src"}, nil
			},
			want: "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := site.Load(t.TempDir(), tt.setup)
			testza.AssertNil(t, s)
			testza.AssertNotNil(t, err)
			testza.AssertContains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveCollections(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := site.Load(root, func(cfg *site.Config) (*site.Dirs, error) {
		cfg.AddCollection("users", func(_ context.Context, api site.CollectionAPI) ([]any, error) {
			return []any{api.Resolve("_data", "x.json")}, nil
		})
		cfg.AddCollection("empty", staticItems())
		return nil, nil
	})
	testza.AssertNil(t, err)

	got, err := s.ResolveCollections(context.Background())
	testza.AssertNil(t, err)
	testza.AssertEqual(t, []any{filepath.Join(root, "_data", "x.json")}, got["users"])
	testza.AssertNotNil(t, got["empty"])
	testza.AssertLen(t, got["empty"], 0)
}

func TestResolveCollections_FirstErrorAborts(t *testing.T) {
	t.Parallel()

	calls := 0
	s, err := site.Load(t.TempDir(), func(cfg *site.Config) (*site.Dirs, error) {
		cfg.AddCollection("broken", func(context.Context, site.CollectionAPI) ([]any, error) {
			calls++
			return nil, errors.New("unreadable")
		})
		cfg.AddCollection("after", func(context.Context, site.CollectionAPI) ([]any, error) {
			calls++
			return []any{"x"}, nil
		})
		return nil, nil
	})
	testza.AssertNil(t, err)

	got, err := s.ResolveCollections(context.Background())
	testza.AssertNil(t, got)
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "unreadable")
	testza.AssertEqual(t, 1, calls)
}
