// Package config provides the configuration system for kiln using koanf.
// It loads YAML, JSON and TOML files, environment variables and CLI flags,
// and reloads files when they change on disk.
package config

import "github.com/knadh/koanf/v2"

const (
	defaultEnvPrefix  = "KILN_"
	defaultConfigName = "kiln"
)

// ReloadNotifier can register callbacks for config reload events.
type ReloadNotifier interface {
	OnReload(fn func(k *koanf.Koanf))
}

// Source describes where the configuration was loaded from.
type Source struct {
	// Dir is the directory of the first loaded config file, or "" when no file was found.
	Dir string

	// Files lists every loaded config file in load order.
	Files []string
}

// Config holds the configuration for the config module.
type Config struct {
	// EnvPrefix specifies the prefix for environment variables used to override configuration values.
	EnvPrefix string

	// ConfigDirs specifies the directories to search for configuration files in the given order.
	ConfigDirs []string

	// ConfigName specifies the base name of the configuration file without its file extension.
	ConfigName string

	// Args contains the command-line arguments to be parsed for configuration overrides.
	Args []string

	// Aliases maps short flag names to full config keys (e.g. "watch" -> "modules.build.build.default.watch").
	Aliases []Alias
}

// Alias is a short CLI flag that sets a full config key.
type Alias struct {
	Flag    string
	Key     string
	Default any
	Usage   string
}

// Option manipulates Config.
type Option func(cfg *Config)

// NewDefaultConfig returns default configuration.
func NewDefaultConfig() Config {
	return Config{
		EnvPrefix:  defaultEnvPrefix,
		ConfigDirs: []string{".", "./config"},
		ConfigName: defaultConfigName,
		Args:       nil,
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

// WithEnvPrefix sets the environment variable prefix (default: "KILN_").
func WithEnvPrefix(prefix string) Option {
	return func(cfg *Config) {
		cfg.EnvPrefix = prefix
	}
}

// WithConfigDirs sets directories to search for config files.
func WithConfigDirs(dirs ...string) Option {
	return func(cfg *Config) {
		cfg.ConfigDirs = dirs
	}
}

// WithConfigName sets the base config file name without extension (default: "kiln").
func WithConfigName(name string) Option {
	return func(cfg *Config) {
		cfg.ConfigName = name
	}
}

// WithArgs sets CLI arguments to parse for config overrides.
func WithArgs(args []string) Option {
	return func(cfg *Config) {
		cfg.Args = args
	}
}

// WithAliases registers several short CLI flags at once.
func WithAliases(aliases ...Alias) Option {
	return func(cfg *Config) {
		cfg.Aliases = append(cfg.Aliases, aliases...)
	}
}

// WithAlias registers a short CLI flag for a full config key. The type of def
// (bool, string, int) decides the flag type.
func WithAlias(flag, key string, def any, usage string) Option {
	return func(cfg *Config) {
		cfg.Aliases = append(cfg.Aliases, Alias{Flag: flag, Key: key, Default: def, Usage: usage})
	}
}
