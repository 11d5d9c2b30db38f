package otel

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

// Module manages OpenTelemetry SDK lifecycle.
type Module struct {
	config     Config
	onShutdown func(context.Context) error
}

// NewModule creates a new OTEL module
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryOTel, "otel", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	return m.config.LoadFromKoanf(k, m.ConfigPath())
}

// Init sets up the provider and exporter stack when enabled.
func (m *Module) Init(ctx context.Context) error {
	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	if !m.config.Enabled {
		slox.Debug(ctx, "opentelemetry disabled")
		return nil
	}

	var err error
	m.onShutdown, err = setupOTelSDK(ctx, m.config)
	if err != nil {
		return oops.Wrapf(err, "failed to setup OpenTelemetry SDK")
	}

	slox.Info(ctx, "opentelemetry enabled", slog.String("service", m.config.ServiceName))

	return nil
}

// Shutdown flushes and stops the exporters.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.onShutdown == nil {
		return nil
	}
	return m.onShutdown(ctx)
}
