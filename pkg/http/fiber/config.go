package fiberserver

import (
	"net/netip"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/oops"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = 8080
)

// Router registers extra routes. Existing files in the output directory take precedence over them.
type Router func(app *fiber.App)

// Config represents configuration for the development HTTP server [Module]
type Config struct {
	// Instance name (determines config path, cannot come from config file)
	Name string `koanf:"-"`

	// Enabled starts the server. Without it the module does nothing.
	Enabled bool `koanf:"enabled"`

	// Host is the IP address to listen on.
	Host string `koanf:"host"`

	// Port is the TCP port to listen on.
	Port uint16 `koanf:"port"`

	// HealthPath serves the health report when set (e.g. "/healthz").
	HealthPath string `koanf:"health_path"`

	// Raw passthrough for fiber.Config fields (app_name, read_timeout, etc.)
	Raw config.Passthrough[fiber.Config] `koanf:",remain"`

	// Routers are invoked with the app after the static handler is mounted.
	Routers []Router `code_only:"WithRouter" koanf:"-"`
}

// NewDefaultConfig returns default configuration
func NewDefaultConfig() Config {
	return Config{
		Name:    config.DefaultInstanceName,
		Host:    defaultHost,
		Port:    defaultPort,
		Routers: make([]Router, 0),
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

// AddrPort returns the parsed address and port for the server.
func (c *Config) AddrPort() (netip.AddrPort, error) {
	addr, err := netip.ParseAddr(c.Host)
	if err != nil {
		return netip.AddrPort{}, oops.With("host", c.Host).Wrapf(err, "invalid host")
	}
	return netip.AddrPortFrom(addr, c.Port), nil
}

// ToFiberConfig returns a fiber.Config with Raw fields applied.
func (c *Config) ToFiberConfig() (fiber.Config, error) {
	cfg := fiber.Config{}
	if len(c.Raw) == 0 {
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json", // fiber.Config uses json tags
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return cfg, oops.Wrapf(err, "failed to create fiber config decoder")
	}

	if err := decoder.Decode(map[string]any(c.Raw)); err != nil {
		return cfg, oops.Wrapf(err, "invalid fiber config")
	}

	return cfg, nil
}

// Option configures the Module.
type Option func(m *Config)

// WithName sets the instance name for this module.
func WithName(name string) Option {
	return func(m *Config) { m.Name = name }
}

// WithEnabled turns the server on regardless of configuration files.
func WithEnabled(enabled bool) Option {
	return func(m *Config) { m.Enabled = enabled }
}

// WithPort sets the listen port.
func WithPort(port uint16) Option {
	return func(m *Config) { m.Port = port }
}

// WithHealthPath serves the health report at path.
func WithHealthPath(path string) Option {
	return func(m *Config) { m.HealthPath = path }
}

// WithRouter adds router to the list of routers to be invoked (code-only).
func WithRouter(router Router) Option {
	return func(m *Config) { m.Routers = append(m.Routers, router) }
}
