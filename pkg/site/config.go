// Package site holds the configuration builder a site setup function registers against,
// and the frozen [Site] the build host works from.
package site

import (
	"context"
	"path/filepath"

	"github.com/samber/oops"
)

// Dirs maps the input tree and the build output root. Empty fields keep the defaults.
type Dirs struct {
	Input  string `json:"input"  koanf:"input"  yaml:"input"`
	Output string `json:"output" koanf:"output" yaml:"output"`
}

// DefaultDirs returns {Input: ".", Output: "_site"}.
func DefaultDirs() Dirs {
	return Dirs{Input: ".", Output: "_site"}
}

func (d Dirs) merge(over *Dirs) Dirs {
	if over == nil {
		return d
	}
	if over.Input != "" {
		d.Input = over.Input
	}
	if over.Output != "" {
		d.Output = over.Output
	}
	return d
}

// Rule copies Source (relative to the site root, or absolute) to Target (relative to the output root).
type Rule struct {
	Source string
	Target string
}

// CollectionAPI is what a collection function sees of the site while resolving.
type CollectionAPI interface {
	// Root is the directory the configuration was resolved against.
	Root() string
	// Resolve joins elem onto Root.
	Resolve(elem ...string) string
}

// CollectionFunc produces the items of a named collection. It is invoked once per build.
type CollectionFunc func(ctx context.Context, api CollectionAPI) ([]any, error)

// Setup is a site configuration function. Returning nil Dirs keeps the defaults.
type Setup func(cfg *Config) (*Dirs, error)

type namedCollection struct {
	name string
	fn   CollectionFunc
}

// Config is the mutable builder handed to a [Setup]. Registration does no I/O.
type Config struct {
	root        string
	passthrough []Rule
	collections []namedCollection
	errs        []error
}

func newConfig(root string) *Config {
	return &Config{root: root}
}

// Root returns the directory the configuration is resolved against.
func (c *Config) Root() string {
	return c.root
}

// AddPassthroughCopy registers each path to be copied verbatim to the same relative
// location under the output root.
func (c *Config) AddPassthroughCopy(paths ...string) {
	for _, p := range paths {
		if p == "" {
			c.errs = append(c.errs, oops.In("site").Code("passthrough_empty_path").Errorf("passthrough path is empty"))
			continue
		}

		if filepath.IsAbs(p) {
			c.errs = append(c.errs, oops.In("site").Code("passthrough_absolute_path").With("path", p).
				Errorf("passthrough path %q must be relative, use AddPassthroughCopyTo for absolute sources", p))
			continue
		}

		clean := filepath.Clean(filepath.FromSlash(p))
		c.passthrough = append(c.passthrough, Rule{Source: clean, Target: clean})
	}
}

// AddPassthroughCopyTo registers source to be copied to target, relative to the output root.
func (c *Config) AddPassthroughCopyTo(source, target string) {
	if source == "" || target == "" {
		c.errs = append(c.errs, oops.In("site").Code("passthrough_empty_path").
			With("source", source).With("target", target).
			Errorf("passthrough source and target must not be empty"))
		return
	}

	c.passthrough = append(c.passthrough, Rule{
		Source: filepath.Clean(filepath.FromSlash(source)),
		Target: filepath.Clean(filepath.FromSlash(target)),
	})
}

// AddCollection registers a named collection. Names are unique.
func (c *Config) AddCollection(name string, fn CollectionFunc) {
	switch {
	case name == "":
		c.errs = append(c.errs, oops.In("site").Code("collection_empty_name").Errorf("collection name is empty"))
		return
	case fn == nil:
		c.errs = append(c.errs, oops.In("site").Code("collection_nil_func").With("collection", name).
			Errorf("collection %q has no function", name))
		return
	}

	for _, existing := range c.collections {
		if existing.name == name {
			c.errs = append(c.errs, oops.In("site").Code("collection_duplicate").With("collection", name).
				Errorf("collection %q registered twice", name))
			return
		}
	}

	c.collections = append(c.collections, namedCollection{name: name, fn: fn})
}
