package kiln

import "github.com/knadh/koanf/v2"

// Configurable is implemented by modules that can load configuration from koanf.
type Configurable interface {
	// ConfigPath returns the koanf path for this module's configuration.
	// Example: "modules.build.build.default"
	ConfigPath() string

	// LoadConfig loads configuration from koanf into the module's config struct.
	LoadConfig(k *koanf.Koanf) error
}

// NamedModule is implemented by modules that support instance naming.
type NamedModule interface {
	// Name returns the instance name for this module.
	Name() string
}

// LoadModuleConfig loads the module's configuration from the koanf instance in the
// injector, if there is one. Modules without a config section keep their defaults.
func LoadModuleConfig(k *koanf.Koanf, module Configurable) error {
	if k == nil || !k.Exists(module.ConfigPath()) {
		return nil
	}

	return module.LoadConfig(k)
}
