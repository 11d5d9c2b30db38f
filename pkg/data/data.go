// Package data loads a site's global data directory.
package data

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/samber/oops"
)

// Load parses every JSON, YAML and TOML file directly inside dir and keys its content
// by file stem. A missing dir yields an empty map.
func Load(dir string) (map[string]any, error) {
	out := make(map[string]any)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, oops.In("data").With("dir", dir).Wrapf(err, "failed to read data directory")
	}

	sources := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		parser := config.ParserFor(ext)
		if parser == nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		if previous, ok := sources[stem]; ok {
			return nil, oops.In("data").Code("data_duplicate_key").
				With("key", stem).With("file", path).With("previous", previous).
				Errorf("data key %q defined by both %s and %s", stem, filepath.Base(previous), entry.Name())
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.In("data").With("file", path).Wrapf(err, "failed to read data file")
		}

		parsed, err := parser.Unmarshal(raw)
		if err != nil {
			return nil, oops.In("data").Code("data_invalid").With("file", path).
				Wrapf(err, "failed to parse data file %s", entry.Name())
		}

		sources[stem] = path
		out[stem] = parsed
	}

	return out, nil
}
