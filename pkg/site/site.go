package site

import (
	"context"
	"errors"
	"path/filepath"
	"slices"

	"github.com/samber/oops"
)

// Site is the immutable result of running a [Setup].
type Site struct {
	root        string
	dirs        Dirs
	passthrough []Rule
	collections []namedCollection
}

// Load runs setup against a fresh builder rooted at root, validates the registrations
// and freezes them.
func Load(root string, setup Setup) (*Site, error) {
	if setup == nil {
		return nil, oops.In("site").Errorf("setup is nil")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, oops.In("site").With("root", root).Wrapf(err, "failed to resolve site root")
	}

	cfg := newConfig(abs)

	dirs, err := setup(cfg)
	if err != nil {
		return nil, oops.In("site").Wrapf(err, "site setup failed")
	}

	if len(cfg.errs) > 0 {
		return nil, oops.In("site").Wrapf(errors.Join(cfg.errs...), "invalid site configuration")
	}

	s := &Site{
		root:        abs,
		dirs:        DefaultDirs().merge(dirs),
		passthrough: slices.Clone(cfg.passthrough),
		collections: slices.Clone(cfg.collections),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Site) validate() error {
	if s.InputDir() == s.OutputDir() {
		return oops.In("site").Code("output_is_input").With("dir", s.OutputDir()).
			Errorf("output directory must differ from the input directory")
	}

	for _, rule := range s.passthrough {
		if !filepath.IsLocal(rule.Target) && rule.Target != "." {
			return oops.In("site").Code("passthrough_target_escapes").
				With("source", rule.Source).With("target", rule.Target).
				Errorf("passthrough target %q escapes the output root", rule.Target)
		}
	}

	return nil
}

// Root returns the absolute directory the configuration was resolved against.
func (s *Site) Root() string {
	return s.root
}

// Resolve joins elem onto the site root.
func (s *Site) Resolve(elem ...string) string {
	return filepath.Join(append([]string{s.root}, elem...)...)
}

// Dirs returns the directory mapping as configured.
func (s *Site) Dirs() Dirs {
	return s.dirs
}

// InputDir returns the absolute input directory.
func (s *Site) InputDir() string {
	return s.abs(s.dirs.Input)
}

// OutputDir returns the absolute output directory.
func (s *Site) OutputDir() string {
	return s.abs(s.dirs.Output)
}

// SourcePath returns the absolute source path of rule.
func (s *Site) SourcePath(rule Rule) string {
	return s.abs(rule.Source)
}

// TargetPath returns the absolute target path of rule under the output root.
func (s *Site) TargetPath(rule Rule) string {
	return filepath.Join(s.OutputDir(), rule.Target)
}

// Passthrough returns the passthrough rules in registration order.
func (s *Site) Passthrough() []Rule {
	return slices.Clone(s.passthrough)
}

// Collections returns collection names in registration order.
func (s *Site) Collections() []string {
	names := make([]string, len(s.collections))
	for i, c := range s.collections {
		names[i] = c.name
	}
	return names
}

// ResolveCollections invokes every collection function once. The first failure aborts
// resolution and no partial result is returned.
func (s *Site) ResolveCollections(ctx context.Context) (map[string][]any, error) {
	out := make(map[string][]any, len(s.collections))

	for _, c := range s.collections {
		if err := ctx.Err(); err != nil {
			return nil, oops.In("site").Wrapf(err, "collection resolution cancelled")
		}

		items, err := c.fn(ctx, s)
		if err != nil {
			return nil, oops.In("site").Code("collection_failed").With("collection", c.name).
				Wrapf(err, "failed to resolve collection %q", c.name)
		}

		if items == nil {
			items = []any{}
		}

		out[c.name] = items
	}

	return out, nil
}

func (s *Site) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.root, p)
}
