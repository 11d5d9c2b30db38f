package slog

import (
	"github.com/Vilsol/kiln/pkg/config"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// Config represents configuration for slog [Module]
type Config struct {
	// Instance name
	Name string `koanf:"-"`

	// Level represents the default log level.
	Level string `enum:"debug,info,warn,error" koanf:"level"`

	// Levels defines a map of per-package log level overrides.
	Levels map[string]string `koanf:"levels"`

	// GlobalDefault indicates whether the logger should be set as the default globally.
	GlobalDefault bool `koanf:"global_default"`

	// BridgeName is the instrumentation scope used for the OpenTelemetry log bridge.
	BridgeName string `koanf:"bridge_name"`
}

// NewDefaultConfig returns default configuration
func NewDefaultConfig() Config {
	return Config{
		Name:          config.DefaultInstanceName,
		Level:         "info",
		GlobalDefault: true,
		BridgeName:    "kiln",
	}
}

// NewConfig returns configuration with provided options based on defaults.
func NewConfig(options ...Option) Config {
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

// Option configures the Module.
type Option func(m *Config)

// WithName sets the instance name for this module.
func WithName(name string) Option {
	return func(m *Config) { m.Name = name }
}

// WithLevel sets the default log level.
func WithLevel(level string) Option {
	return func(m *Config) { m.Level = level }
}

// WithLevels sets per-package log level overrides.
func WithLevels(levels map[string]string) Option {
	return func(m *Config) { m.Levels = levels }
}

// WithGlobalDefault controls whether the logger replaces slog's default logger.
func WithGlobalDefault(enabled bool) Option {
	return func(m *Config) { m.GlobalDefault = enabled }
}
