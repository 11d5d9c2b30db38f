package config

import "fmt"

// Category constants for module organization.
const (
	CategorySite    = "site"
	CategoryBuild   = "build"
	CategoryHTTP    = "http"
	CategoryLogging = "logging"
	CategoryOTel    = "otel"
	CategoryHealth  = "health"
)

// DefaultInstanceName is the default instance name for modules.
const DefaultInstanceName = "default"

// ModulePath generates the config path for a module instance.
// Example: ModulePath("build", "build", "") -> "modules.build.build.default"
func ModulePath(category, moduleType, instance string) string {
	if instance == "" {
		instance = DefaultInstanceName
	}
	return fmt.Sprintf("modules.%s.%s.%s", category, moduleType, instance)
}
