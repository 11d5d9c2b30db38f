package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

type configFile struct {
	path   string
	parser koanf.Parser
}

// ParserFor returns the koanf parser for a file extension (".yaml", ".json", ...),
// or nil when the extension is not supported.
func ParserFor(ext string) koanf.Parser { //nolint:ireturn
	switch ext {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// SupportedExtensions lists config file extensions in lookup order.
func SupportedExtensions() []string {
	return []string{".yaml", ".yml", ".json", ".toml"}
}

func (m *Module) discoverConfigFiles() []configFile {
	var files []configFile

	for _, dir := range m.config.ConfigDirs {
		for _, ext := range SupportedExtensions() {
			path := filepath.Join(dir, m.config.ConfigName+ext)
			if _, err := os.Stat(path); err == nil {
				files = append(files, configFile{
					path:   path,
					parser: ParserFor(ext),
				})
			}
		}
	}

	return files
}

func (m *Module) loadConfigFiles(k *koanf.Koanf) error {
	m.configFiles = m.discoverConfigFiles()

	for _, cf := range m.configFiles {
		if err := k.Load(file.Provider(cf.path), cf.parser); err != nil {
			return oops.Wrapf(err, "failed to load config file: %s", cf.path)
		}
	}

	return nil
}

func (m *Module) source() (Source, error) {
	src := Source{Files: make([]string, 0, len(m.configFiles))}

	for _, cf := range m.configFiles {
		src.Files = append(src.Files, cf.path)
	}

	if len(m.configFiles) > 0 {
		dir, err := filepath.Abs(filepath.Dir(m.configFiles[0].path))
		if err != nil {
			return Source{}, oops.Wrapf(err, "failed to resolve config directory")
		}
		src.Dir = dir
	}

	return src, nil
}
