package build

import (
	"time"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// Config represents configuration for the build [Module]
type Config struct {
	// Instance name
	Name string `koanf:"-"`

	// Clean removes the output directory before every build.
	Clean bool `koanf:"clean"`

	// Watch rebuilds whenever a source file changes, until the process is stopped.
	Watch bool `koanf:"watch"`

	// Workers bounds how many files are copied and pages rendered concurrently. 0 uses GOMAXPROCS.
	Workers int `koanf:"workers"`

	// Debounce is how long the watcher waits for changes to settle before rebuilding.
	Debounce time.Duration `koanf:"debounce"`

	// HighlightStyle is the chroma style for fenced code blocks in Markdown. Empty disables highlighting.
	HighlightStyle string `koanf:"highlight_style"`

	// LogLevel, when set, applies to every record logged during a build and
	// overrides the per-package levels of the logging module.
	LogLevel string `enum:"debug,info,warn,error" koanf:"log_level"`
}

// NewDefaultConfig returns default configuration
func NewDefaultConfig() Config {
	return Config{
		Name:           config.DefaultInstanceName,
		Debounce:       200 * time.Millisecond,
		HighlightStyle: "monokai",
	}
}

// NewConfig returns configuration with provided options based on defaults.
func NewConfig(options ...ModuleOption) Config {
	cfg := NewDefaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	return cfg
}

// LoadFromKoanf loads configuration from koanf instance at the given path.
func (c *Config) LoadFromKoanf(k *koanf.Koanf, path string) error {
	return oops.Wrapf(k.Unmarshal(path, c), "failed to load config from koanf at path %s", path)
}

// Validate rejects negative durations, negative worker counts and unknown log levels.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return oops.In("build").Errorf("workers must not be negative")
	}
	if c.Debounce < 0 {
		return oops.In("build").Errorf("debounce must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return oops.In("build").With("log_level", c.LogLevel).Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// ModuleOption configures the Module.
type ModuleOption func(m *Config)

// WithName sets the instance name for this module.
func WithName(name string) ModuleOption {
	return func(m *Config) { m.Name = name }
}

// WithWatch enables watch mode.
func WithWatch(watch bool) ModuleOption {
	return func(m *Config) { m.Watch = watch }
}

// WithDebounce sets the watch debounce delay.
func WithDebounce(d time.Duration) ModuleOption {
	return func(m *Config) { m.Debounce = d }
}

// WithLogLevel pins the log level used while a build runs.
func WithLogLevel(lvl string) ModuleOption {
	return func(m *Config) { m.LogLevel = lvl }
}
