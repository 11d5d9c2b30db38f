package slog

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/logging/level"
	"github.com/Vilsol/slox"
	"github.com/knadh/koanf/v2"
	slogotel "github.com/remychantenay/slog-otel"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var (
	_ kiln.Module       = (*Module)(nil)
	_ kiln.Configurable = (*Module)(nil)
	_ kiln.NamedModule  = (*Module)(nil)
)

// Module builds the application *slog.Logger on top of the slog.Handler
// provided by a handler module (tint) and fans records out to the
// OpenTelemetry log bridge.
type Module struct {
	config Config
	filter *levelFilter
	logger *slog.Logger
}

// NewModule creates a new slog module with the given options.
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryLogging, "slog", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	return m.config.LoadFromKoanf(k, m.ConfigPath())
}

// Init composes the logger and provides it through DI.
func (m *Module) Init(ctx context.Context) error {
	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	handler, err := kiln.Invoke[slog.Handler](ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to retrieve logger handler")
	}

	m.filter = newLevelFilter(
		slogmulti.Fanout(
			slogotel.New(handler),
			otelslog.NewHandler(m.config.BridgeName),
		),
		level.Parse(m.config.Level),
		level.ParseAll(m.config.Levels),
	)

	m.logger = slog.New(newStackRewriter(m.filter))

	if m.config.GlobalDefault {
		slog.SetDefault(m.logger)
	}

	m.warnUnknownPrefixes(slox.Into(ctx, m.logger))

	if notifier, err := kiln.Invoke[config.ReloadNotifier](ctx); err == nil {
		notifier.OnReload(m.reloadLevels)
	}

	kiln.Provide(ctx, m.GetLogger)

	return nil
}

// Shutdown is a no-op for this module.
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

// GetLogger provides the composed logger.
func (m *Module) GetLogger(_ do.Injector) (*slog.Logger, error) {
	return m.logger, nil
}

func (m *Module) reloadLevels(k *koanf.Koanf) {
	cfg := NewDefaultConfig()
	cfg.Name = m.config.Name
	if k.Exists(m.ConfigPath()) {
		if err := cfg.LoadFromKoanf(k, m.ConfigPath()); err != nil {
			m.logger.Warn("ignoring invalid logging config", slog.Any("error", err))
			return
		}
	}

	m.filter.Update(level.Parse(cfg.Level), level.ParseAll(cfg.Levels))
}

func (m *Module) warnUnknownPrefixes(ctx context.Context) {
	info, ok := debug.ReadBuildInfo()
	if !ok || len(m.config.Levels) == 0 {
		return
	}

	modules := []string{info.Main.Path}
	for _, dep := range info.Deps {
		modules = append(modules, dep.Path)
	}

	for prefix := range m.config.Levels {
		if !prefixMatchesAnyModule(prefix, modules) {
			slox.Warn(ctx, "log level override matches no module in this binary", slog.String("prefix", prefix))
		}
	}
}
