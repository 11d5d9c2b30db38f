package boardgames_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/internal/boardgames"
	"github.com/Vilsol/kiln/pkg/site"
)

func TestSetup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		options []boardgames.Option
		rules   []site.Rule
	}{
		{
			name:  "static only",
			rules: []site.Rule{{Source: "static", Target: "static"}},
		},
		{
			name:    "with favicon",
			options: []boardgames.Option{boardgames.WithFavicon("favicon.ico")},
			rules: []site.Rule{
				{Source: "static", Target: "static"},
				{Source: "favicon.ico", Target: "favicon.ico"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := site.Load(t.TempDir(), boardgames.Setup(tt.options...))
			testza.AssertNil(t, err)

			testza.AssertEqual(t, tt.rules, s.Passthrough())
			testza.AssertEqual(t, []string{"users"}, s.Collections())
			testza.AssertEqual(t, site.Dirs{Input: ".", Output: "_site"}, s.Dirs())
		})
	}
}

func TestSetup_UsersFromSuggestedPlayers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testza.AssertNil(t, os.MkdirAll(filepath.Join(root, "_data"), 0o755))
	testza.AssertNil(t, os.WriteFile(
		filepath.Join(root, "_data", "suggested_players.json"),
		[]byte(`{"vilsol": {"games": [1]}, "anna": {"games": []}, "bert": {}}`),
		0o600,
	))

	s, err := site.Load(root, boardgames.Setup())
	testza.AssertNil(t, err)

	got, err := s.ResolveCollections(context.Background())
	testza.AssertNil(t, err)
	testza.AssertEqual(t, []any{"vilsol", "anna", "bert"}, got[boardgames.UsersCollection])
}
