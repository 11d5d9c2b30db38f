package site

import (
	"context"
	"log/slog"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/slox"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

var (
	_ kiln.Module       = (*Module)(nil)
	_ kiln.Configurable = (*Module)(nil)
	_ kiln.NamedModule  = (*Module)(nil)
)

// ModuleConfig represents configuration for the site [Module]
type ModuleConfig struct {
	// Instance name
	Name string `koanf:"-"`

	// Root is the directory the site is resolved against. Defaults to the config file's directory, or the working directory.
	Root string `koanf:"root"`

	// Input overrides the input directory returned by the setup function.
	Input string `koanf:"input"`

	// Output overrides the output directory returned by the setup function.
	Output string `koanf:"output"`

	// Passthrough lists extra paths copied verbatim in addition to those the setup function registers.
	Passthrough []string `koanf:"passthrough"`
}

// NewDefaultModuleConfig returns default configuration
func NewDefaultModuleConfig() ModuleConfig {
	return ModuleConfig{
		Name: config.DefaultInstanceName,
	}
}

// ModuleOption configures the Module.
type ModuleOption func(m *ModuleConfig)

// WithName sets the instance name for this module.
func WithName(name string) ModuleOption {
	return func(m *ModuleConfig) { m.Name = name }
}

// WithRoot sets an explicit site root.
func WithRoot(root string) ModuleOption {
	return func(m *ModuleConfig) { m.Root = root }
}

// Module runs a [Setup] and provides the resulting *[Site].
type Module struct {
	config ModuleConfig
	setup  Setup
	site   *Site
}

// NewModule creates a site module for setup.
func NewModule(setup Setup, options ...ModuleOption) *Module {
	cfg := NewDefaultModuleConfig()
	for _, option := range options {
		option(&cfg)
	}
	return &Module{config: cfg, setup: setup}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategorySite, "site", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	return oops.Wrapf(k.Unmarshal(m.ConfigPath(), &m.config), "failed to load config from koanf at path %s", m.ConfigPath())
}

// Init runs the setup function and provides the frozen site.
func (m *Module) Init(ctx context.Context) error {
	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	root := m.config.Root
	if root == "" {
		if src, err := kiln.Invoke[config.Source](ctx); err == nil && src.Dir != "" {
			root = src.Dir
		} else {
			root = "."
		}
	}

	s, err := Load(root, m.wrapSetup())
	if err != nil {
		return err
	}

	m.site = s

	slox.Info(ctx, "site loaded",
		slog.String("root", s.Root()),
		slog.String("input", s.InputDir()),
		slog.String("output", s.OutputDir()),
		slog.Int("passthrough", len(s.passthrough)),
		slog.Any("collections", s.Collections()),
	)

	kiln.ProvideValue(ctx, s)

	return nil
}

// Shutdown is a no-op.
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

// Site returns the loaded site, nil before Init.
func (m *Module) Site() *Site {
	return m.site
}

func (m *Module) wrapSetup() Setup {
	return func(cfg *Config) (*Dirs, error) {
		dirs, err := m.setup(cfg)
		if err != nil {
			return nil, err
		}

		cfg.AddPassthroughCopy(m.config.Passthrough...)

		merged := DefaultDirs().merge(dirs).merge(&Dirs{Input: m.config.Input, Output: m.config.Output})
		return &merged, nil
	}
}
