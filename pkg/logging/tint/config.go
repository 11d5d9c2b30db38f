package tint

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/knadh/koanf/v2"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/samber/oops"
)

// Config represents configuration for Tint [Module]
type Config struct {
	// Instance name (determines config path, cannot come from config file)
	Name string `koanf:"-"`

	// Writer receives the formatted log lines.
	Writer io.Writer `code_only:"WithWriter" koanf:"-"`

	// Level is the minimum level written by the console handler.
	Level string `enum:"debug,info,warn,error" koanf:"level"`

	// TimeFormat is the Go time layout used for timestamps.
	TimeFormat string `koanf:"time_format"`

	// NoColor disables ANSI colors. Colors are also dropped when Writer is a
	// file that is not a terminal, such as a redirected build log.
	NoColor bool `koanf:"no_color"`

	// AddSource includes the calling file and line in each record.
	AddSource bool `koanf:"add_source"`
}

// NewDefaultConfig returns default configuration
func NewDefaultConfig() Config {
	return Config{
		Name:       config.DefaultInstanceName,
		Writer:     os.Stderr,
		Level:      "info",
		TimeFormat: time.Kitchen,
		NoColor:    false,
		AddSource:  false,
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

// TintOptions returns tint.Options writing records at or above leveler.
func (c *Config) TintOptions(leveler slog.Leveler) *tint.Options {
	return &tint.Options{
		AddSource:   c.AddSource,
		Level:       leveler,
		TimeFormat:  c.TimeFormat,
		NoColor:     c.NoColor || !isTerminal(c.Writer),
		ReplaceAttr: highlightErrors,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// highlightErrors colors error values red.
func highlightErrors(_ []string, attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindAny {
		return attr
	}

	if _, ok := attr.Value.Any().(error); ok {
		return tint.Attr(9, attr)
	}

	return attr
}

// Option configures the Module.
type Option func(m *Config)

// WithName sets the instance name for this module.
func WithName(name string) Option {
	return func(m *Config) { m.Name = name }
}

// WithWriter sets the output writer (code-only, cannot be configured via files).
func WithWriter(writer io.Writer) Option {
	return func(m *Config) { m.Writer = writer }
}

// WithLevel sets the minimum console level.
func WithLevel(lvl string) Option {
	return func(m *Config) { m.Level = lvl }
}

// WithNoColor disables ANSI colors.
func WithNoColor() Option {
	return func(m *Config) { m.NoColor = true }
}
