package config

import (
	"context"
	"strings"
	"sync"

	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

var (
	_ kiln.Module    = (*Module)(nil)
	_ ReloadNotifier = (*Module)(nil)
)

// IsConfigModule is a marker method to identify this module as the config module.
func (m *Module) IsConfigModule() {}

// Module is the configuration module that loads and provides configuration.
type Module struct {
	config      Config
	koanf       *koanf.Koanf
	mu          sync.RWMutex
	configFiles []configFile
	flagSet     *pflag.FlagSet
	onReload    []func(k *koanf.Koanf)
}

// NewModule creates a new config module.
func NewModule(options ...Option) *Module {
	return &Module{
		config: NewConfig(options...),
		koanf:  koanf.New("."),
	}
}

// Init loads configuration from files, env vars, and CLI flags, in that order of precedence.
func (m *Module) Init(ctx context.Context) error {
	if err := m.loadConfigFiles(m.koanf); err != nil {
		return oops.Wrapf(err, "failed to load config files")
	}

	if err := m.loadEnvVars(m.koanf); err != nil {
		return oops.Wrapf(err, "failed to load environment variables")
	}

	if err := m.loadCLIFlags(); err != nil {
		return oops.Wrapf(err, "failed to load CLI flags")
	}

	src, err := m.source()
	if err != nil {
		return err
	}

	m.startWatcher(ctx, src)

	kiln.Provide(ctx, m.provideKoanf)
	kiln.Provide(ctx, m.provideReloadNotifier)
	kiln.ProvideValue(ctx, src)

	return nil
}

// envKey maps KILN_MODULES_BUILD_BUILD_DEFAULT_HIGHLIGHT_STYLE to
// modules.build.build.default.highlight_style. Below a module instance the
// rest of the name is a single key, so module keys may contain underscores.
func (m *Module) envKey(s string) string {
	parts := strings.Split(strings.ToLower(strings.TrimPrefix(s, m.config.EnvPrefix)), "_")
	if len(parts) > 5 && parts[0] == "modules" {
		return strings.Join(parts[:4], ".") + "." + strings.Join(parts[4:], "_")
	}
	return strings.Join(parts, ".")
}

func (m *Module) loadEnvVars(k *koanf.Koanf) error {
	if err := k.Load(env.Provider(m.config.EnvPrefix, ".", m.envKey), nil); err != nil {
		return oops.Wrapf(err, "failed to load env vars")
	}
	return nil
}

func (m *Module) loadCLIFlags() error {
	if m.config.Args == nil {
		return nil
	}

	m.flagSet = pflag.NewFlagSet("kiln", pflag.ContinueOnError)

	// Pre-populate flags from existing koanf keys so posflag can override them
	for _, key := range m.koanf.Keys() {
		val := m.koanf.Get(key)
		switch v := val.(type) {
		case string:
			m.flagSet.String(key, v, "")
		case int:
			m.flagSet.Int(key, v, "")
		case int64:
			m.flagSet.Int64(key, v, "")
		case float64:
			m.flagSet.Float64(key, v, "")
		case bool:
			m.flagSet.Bool(key, v, "")
		default:
			m.flagSet.String(key, "", "")
		}
	}

	for _, alias := range m.config.Aliases {
		if m.flagSet.Lookup(alias.Flag) != nil {
			continue
		}

		switch v := alias.Default.(type) {
		case bool:
			m.flagSet.Bool(alias.Flag, v, alias.Usage)
		case int:
			m.flagSet.Int(alias.Flag, v, alias.Usage)
		case string:
			m.flagSet.String(alias.Flag, v, alias.Usage)
		default:
			return oops.With("flag", alias.Flag).Errorf("unsupported alias default type %T", alias.Default)
		}
	}

	if err := m.flagSet.Parse(m.config.Args); err != nil {
		return oops.Wrapf(err, "failed to parse CLI flags")
	}

	return m.applyFlags(m.koanf)
}

func (m *Module) applyFlags(k *koanf.Koanf) error {
	if err := k.Load(posflag.Provider(m.flagSet, ".", k), nil); err != nil {
		return oops.Wrapf(err, "failed to load CLI flags into koanf")
	}

	for _, alias := range m.config.Aliases {
		if !m.flagSet.Changed(alias.Flag) {
			continue
		}

		var value any
		var err error
		switch alias.Default.(type) {
		case bool:
			value, err = m.flagSet.GetBool(alias.Flag)
		case int:
			value, err = m.flagSet.GetInt(alias.Flag)
		default:
			value, err = m.flagSet.GetString(alias.Flag)
		}
		if err != nil {
			return oops.With("flag", alias.Flag).Wrapf(err, "failed to read aliased flag")
		}

		if err := k.Set(alias.Key, value); err != nil {
			return oops.With("flag", alias.Flag).Wrapf(err, "failed to set %s", alias.Key)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the config module.
func (m *Module) Shutdown(_ context.Context) error {
	return nil
}

func (m *Module) provideKoanf(_ do.Injector) (*koanf.Koanf, error) {
	return m.Koanf(), nil
}

func (m *Module) provideReloadNotifier(_ do.Injector) (ReloadNotifier, error) { //nolint:ireturn
	return m, nil
}

// Koanf returns the koanf instance (thread-safe for hot-reload).
func (m *Module) Koanf() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanf
}

// OnReload registers a callback invoked with the new koanf instance after config
// is successfully reloaded.
func (m *Module) OnReload(fn func(k *koanf.Koanf)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

func (m *Module) reload() error {
	newKoanf := koanf.New(".")

	for _, cf := range m.configFiles {
		if err := newKoanf.Load(file.Provider(cf.path), cf.parser); err != nil {
			return oops.Wrapf(err, "failed to reload config file: %s", cf.path)
		}
	}

	if err := m.loadEnvVars(newKoanf); err != nil {
		return oops.Wrapf(err, "failed to reload env vars")
	}

	if m.flagSet != nil {
		if err := m.applyFlags(newKoanf); err != nil {
			return oops.Wrapf(err, "failed to reload CLI flags")
		}
	}

	m.mu.Lock()
	m.koanf = newKoanf
	callbacks := make([]func(k *koanf.Koanf), len(m.onReload))
	copy(callbacks, m.onReload)
	m.mu.Unlock()

	// Outside the lock so callbacks may read back through Koanf()
	for _, fn := range callbacks {
		fn(newKoanf)
	}

	return nil
}
