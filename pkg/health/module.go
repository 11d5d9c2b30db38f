package health

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/Vilsol/slox"
	"github.com/hellofresh/health-go/v5"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

var (
	_ kiln.Module       = (*Module)(nil)
	_ kiln.Configurable = (*Module)(nil)
	_ kiln.NamedModule  = (*Module)(nil)
)

// Module reports whether the site is being served from a good build.
type Module struct {
	config Config
}

// NewModule creates a new health check module
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryHealth, "health", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	return m.config.LoadFromKoanf(k, m.ConfigPath())
}

// Init creates the health instance and provides it to the injector
func (m *Module) Init(ctx context.Context) error {
	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	cfg := m.config
	if cfg.OutputCheck {
		if s, err := kiln.Invoke[*site.Site](ctx); err == nil {
			cfg.Checks = append(cfg.Checks, OutputCheck(s.OutputDir()))
		}
	}

	h, err := New(cfg)
	if err != nil {
		return err
	}

	slox.Debug(ctx, "health checks registered", slog.Int("checks", len(cfg.Checks)))

	kiln.ProvideValue(ctx, h)

	return nil
}

// Shutdown is a no-op for the health module
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

// New builds a health instance from cfg.
func New(cfg Config) (*health.Health, error) {
	opts := []health.Option{
		health.WithComponent(cfg.Component()),
	}

	for _, check := range cfg.Checks {
		if check.Timeout == 0 {
			check.Timeout = cfg.CheckTimeout
		}
		opts = append(opts, health.WithChecks(check))
	}

	h, err := health.New(opts...)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create health instance")
	}

	return h, nil
}

// OutputCheck fails until dir holds an index.html.
func OutputCheck(dir string) health.Config {
	index := filepath.Join(dir, "index.html")

	return health.Config{
		Name: "output",
		Check: func(context.Context) error {
			info, err := os.Stat(index)
			if err != nil {
				return oops.In("health").Code("output_missing").With("path", index).
					Wrapf(err, "site has not been written to %s", dir)
			}
			if info.IsDir() {
				return oops.In("health").Code("output_missing").With("path", index).
					Errorf("%s is a directory", index)
			}
			return nil
		},
	}
}
