// Package cli describes the command line surface of the kiln binary.
package cli

import "github.com/Vilsol/kiln/pkg/config"

var (
	buildKey = config.ModulePath(config.CategoryBuild, "build", "")
	siteKey  = config.ModulePath(config.CategorySite, "site", "")
	httpKey  = config.ModulePath(config.CategoryHTTP, "fiber", "")
)

// Flags returns the short flags accepted by kiln. Each one sets a single
// config key of the default module instances.
func Flags() []config.Alias {
	return []config.Alias{
		{Flag: "watch", Key: buildKey + ".watch", Default: false, Usage: "rebuild when sources change"},
		{Flag: "clean", Key: buildKey + ".clean", Default: false, Usage: "remove the output directory before building"},
		{Flag: "workers", Key: buildKey + ".workers", Default: 0, Usage: "concurrent copy and render workers"},
		{Flag: "root", Key: siteKey + ".root", Default: "", Usage: "site root directory"},
		{Flag: "output", Key: siteKey + ".output", Default: "", Usage: "output directory"},
		{Flag: "serve", Key: httpKey + ".enabled", Default: false, Usage: "serve the output directory"},
		{Flag: "port", Key: httpKey + ".port", Default: 8080, Usage: "port to serve on"},
	}
}
