package site_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/knadh/koanf/v2"
	"github.com/samber/do/v2"
)

func TestModule_ConfigOverridesAndSourceRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	k := koanf.New(".")
	testza.AssertNil(t, k.Set("modules.site.site.default.output", "public"))
	testza.AssertNil(t, k.Set("modules.site.site.default.passthrough", []string{"robots.txt"}))

	injector := do.New()
	do.ProvideValue(injector, k)
	do.ProvideValue(injector, config.Source{Dir: root})
	ctx := kiln.WithInjector(context.Background(), injector)

	mod := site.NewModule(func(cfg *site.Config) (*site.Dirs, error) {
		cfg.AddPassthroughCopy("static")
		return &site.Dirs{Input: ".", Output: "_site"}, nil
	})
	testza.AssertNil(t, mod.Init(ctx))

	s, err := kiln.Invoke[*site.Site](ctx)
	testza.AssertNil(t, err)
	testza.AssertEqual(t, mod.Site(), s)

	testza.AssertEqual(t, root, s.Root())
	testza.AssertEqual(t, filepath.Join(root, "public"), s.OutputDir())
	testza.AssertEqual(t, []site.Rule{
		{Source: "static", Target: "static"},
		{Source: "robots.txt", Target: "robots.txt"},
	}, s.Passthrough())
}

func TestModule_ExplicitRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ctx := kiln.WithInjector(context.Background(), do.New())

	mod := site.NewModule(func(*site.Config) (*site.Dirs, error) { return nil, nil }, site.WithRoot(root))
	testza.AssertNil(t, mod.Init(ctx))
	testza.AssertEqual(t, root, mod.Site().Root())
	testza.AssertEqual(t, "modules.site.site.default", mod.ConfigPath())
}
