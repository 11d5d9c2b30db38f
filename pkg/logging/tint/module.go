package tint

import (
	"context"
	"log/slog"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/logging/level"
	"github.com/knadh/koanf/v2"
	"github.com/lmittmann/tint"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

var (
	_ kiln.Module       = (*Module)(nil)
	_ kiln.Configurable = (*Module)(nil)
	_ kiln.NamedModule  = (*Module)(nil)
)

// Module writes human readable log lines to the console. Its level follows
// config reloads, so editing kiln.yaml during --watch takes effect without a restart.
type Module struct {
	config  Config
	level   slog.LevelVar
	handler slog.Handler
}

// NewModule creates a new console logging module with the given options.
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryLogging, "tint", m.config.Name)
}

// LoadConfig loads configuration from koanf. The writer is code only and survives the load.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	cfg := m.config
	if err := cfg.LoadFromKoanf(k, m.ConfigPath()); err != nil {
		return err
	}

	m.config = cfg
	m.level.Set(level.Parse(cfg.Level))

	return nil
}

// Init builds the console handler and provides it as the slog.Handler used by the slog module.
func (m *Module) Init(ctx context.Context) error {
	m.level.Set(level.Parse(m.config.Level))

	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	m.handler = tint.NewHandler(m.config.Writer, m.config.TintOptions(&m.level))

	if notifier, err := kiln.Invoke[config.ReloadNotifier](ctx); err == nil {
		notifier.OnReload(m.reloadLevel)
	}

	kiln.Provide(ctx, func(do.Injector) (slog.Handler, error) {
		return m.handler, nil
	})

	return nil
}

// Shutdown is a no-op for this module.
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

// Level reports the current console level.
func (m *Module) Level() slog.Level {
	return m.level.Level()
}

// reloadLevel applies only the level; colors and time format stay as they were at startup.
func (m *Module) reloadLevel(k *koanf.Koanf) {
	if !k.Exists(m.ConfigPath()) {
		m.level.Set(level.Parse(NewDefaultConfig().Level))
		return
	}

	m.level.Set(level.Parse(k.String(m.ConfigPath() + ".level")))
}
