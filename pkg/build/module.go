package build

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/logging/level"
	klog "github.com/Vilsol/kiln/pkg/logging/slog"
	"github.com/Vilsol/kiln/pkg/render"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/Vilsol/slox"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

var (
	_ kiln.SyncModule   = (*Module)(nil)
	_ kiln.Configurable = (*Module)(nil)
	_ kiln.NamedModule  = (*Module)(nil)
)

var errNoBuild = oops.In("build").Code("build_pending").Errorf("no build has completed yet")

// Module builds the site provided by the site module, once or on every change.
type Module struct {
	mu     sync.RWMutex
	config Config
	site   *site.Site

	last    *Report
	lastErr error
}

// NewModule creates a new build module.
func NewModule(options ...ModuleOption) *Module {
	return &Module{
		config:  NewConfig(options...),
		lastErr: errNoBuild,
	}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryBuild, "build", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.config
	if err := cfg.LoadFromKoanf(k, m.ConfigPath()); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config = cfg

	return nil
}

// Init loads configuration and resolves the site.
func (m *Module) Init(ctx context.Context) error {
	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	s, err := kiln.Invoke[*site.Site](ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to retrieve site")
	}
	m.site = s

	if notifier, err := kiln.Invoke[config.ReloadNotifier](ctx); err == nil {
		notifier.OnReload(func(k *koanf.Koanf) {
			if err := kiln.LoadModuleConfig(k, m); err != nil {
				slox.Warn(ctx, "ignoring invalid reloaded build config", slog.Any("error", err))
			}
		})
	}

	kiln.ProvideValue(ctx, m)

	return nil
}

// Start runs a build. In watch mode it keeps rebuilding on changes until ctx is done
// and build failures are only logged.
func (m *Module) Start(ctx context.Context) error {
	err := m.rebuild(ctx)

	if !m.settings().Watch {
		return err
	}

	return m.watch(ctx)
}

// Shutdown is a no-op.
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

// Check reports the outcome of the most recent build, for health checks.
func (m *Module) Check(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastReport returns the report of the most recent successful build.
func (m *Module) LastReport() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Module) settings() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *Module) rebuild(ctx context.Context) error {
	cfg := m.settings()

	if cfg.LogLevel != "" {
		ctx = klog.PinLevel(ctx, level.Parse(cfg.LogLevel))
	}

	builder := NewBuilder(m.site,
		WithClean(cfg.Clean),
		WithWorkers(cfg.Workers),
		WithRenderOptions(render.WithHighlightStyle(cfg.HighlightStyle)),
	)

	report, err := builder.Build(ctx)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.last = report
	}
	m.mu.Unlock()

	if err != nil {
		slox.Error(ctx, "build failed", slog.Any("error", err))
		return err
	}

	slox.Info(ctx, "build finished",
		slog.Int("files", report.Files),
		slog.Int64("bytes", report.Bytes),
		slog.Int("pages", report.Pages),
		slog.Any("collections", report.Collections),
		slog.Duration("took", report.Duration),
	)

	return nil
}
