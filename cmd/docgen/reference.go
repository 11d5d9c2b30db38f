package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/samber/oops"
	"golang.org/x/mod/modfile"
)

const (
	modulePath = "github.com/Vilsol/kiln"
	envPrefix  = "KILN_"
)

type entry struct {
	module kiln.Configurable
	config any
}

type reference struct {
	Flags   []flagDoc   `yaml:"flags"`
	Modules []moduleDoc `yaml:"modules"`
}

type flagDoc struct {
	Flag    string `yaml:"flag"`
	Key     string `yaml:"key"`
	Default string `yaml:"default,omitempty"`
	Usage   string `yaml:"usage"`
}

type moduleDoc struct {
	Name        string        `yaml:"name"`
	Package     string        `yaml:"package"`
	Path        string        `yaml:"path"`
	Description string        `yaml:"description,omitempty"`
	Keys        []keyDoc      `yaml:"keys,omitempty"`
	Extra       *extraDoc     `yaml:"extra,omitempty"`
	CodeOnly    []codeOnlyDoc `yaml:"codeOnly,omitempty"`
}

type keyDoc struct {
	Key         string `yaml:"key"`
	Type        string `yaml:"type"`
	Default     string `yaml:"default,omitempty"`
	Enum        string `yaml:"enum,omitempty"`
	Env         string `yaml:"env"`
	Flag        string `yaml:"flag,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// extraDoc describes keys that are passed through to a third-party config struct.
type extraDoc struct {
	Type    string `yaml:"type"`
	Package string `yaml:"package"`
	Version string `yaml:"version,omitempty"`
	Docs    string `yaml:"docs,omitempty"`
}

type codeOnlyDoc struct {
	Option      string `yaml:"option"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

type passthroughTarget interface {
	Target() reflect.Type
}

func newReference(root string, flags []config.Alias, entries []entry) reference {
	versions, err := requireVersions(filepath.Join(root, "go.mod"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	byKey := make(map[string]string, len(flags))

	var ref reference
	for _, f := range flags {
		byKey[f.Key] = f.Flag
		ref.Flags = append(ref.Flags, flagDoc{
			Flag:    "--" + f.Flag,
			Key:     f.Key,
			Default: formatDefault(reflect.ValueOf(f.Default)),
			Usage:   f.Usage,
		})
	}

	for _, e := range entries {
		ref.Modules = append(ref.Modules, describe(root, e, byKey, versions))
	}

	return ref
}

func describe(root string, e entry, flags map[string]string, versions map[string]string) moduleDoc {
	t := reflect.TypeOf(e.config)
	v := reflect.ValueOf(e.config)
	path := e.module.ConfigPath()

	comments := readComments(root, t.PkgPath(), t.Name())

	doc := moduleDoc{
		Name:        strings.TrimPrefix(strings.TrimSuffix(path, "."+config.DefaultInstanceName), "modules."),
		Package:     t.PkgPath(),
		Path:        path,
		Description: comments.typeDoc,
	}

	for f := range t.Fields() {
		if !f.IsExported() {
			continue
		}

		if target, ok := reflect.Zero(f.Type).Interface().(passthroughTarget); ok {
			doc.Extra = describeExtra(target.Target(), versions)
			continue
		}

		key := f.Tag.Get("koanf")
		switch {
		case key == "-":
			if option := f.Tag.Get("code_only"); option != "" {
				doc.CodeOnly = append(doc.CodeOnly, codeOnlyDoc{
					Option:      option,
					Type:        typeName(f.Type),
					Description: comments.options[option],
				})
			}
		case key != "":
			full := path + "." + key
			doc.Keys = append(doc.Keys, keyDoc{
				Key:         full,
				Type:        typeName(f.Type),
				Default:     formatDefault(v.FieldByIndex(f.Index)),
				Enum:        f.Tag.Get("enum"),
				Env:         envVar(full),
				Flag:        flags[full],
				Description: comments.fields[f.Name],
			})
		}
	}

	return doc
}

func describeExtra(t reflect.Type, versions map[string]string) *extraDoc {
	doc := &extraDoc{Type: t.Name(), Package: t.PkgPath()}

	var owner string
	for mod := range versions {
		if (doc.Package == mod || strings.HasPrefix(doc.Package, mod+"/")) && len(mod) > len(owner) {
			owner = mod
		}
	}

	if owner != "" {
		doc.Version = versions[owner]
		doc.Docs = fmt.Sprintf("https://pkg.go.dev/%s@%s#%s", doc.Package, doc.Version, doc.Type)
	}

	return doc
}

// envVar maps a full config key to the variable the config module reads it from.
func envVar(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return "any"
	}
	return t.String()
}

func formatDefault(v reflect.Value) string {
	if !v.IsValid() || v.IsZero() {
		return ""
	}

	switch v.Kind() {
	case reflect.Func, reflect.Interface, reflect.Pointer:
		return ""
	case reflect.Slice, reflect.Map:
		if v.Len() == 0 {
			return ""
		}
	default:
	}

	return fmt.Sprint(v.Interface())
}

// moduleRoot finds the directory holding kiln's go.mod, starting from the working directory.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", oops.Wrapf(err, "failed to get working directory")
	}

	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil && modfile.ModulePath(data) == modulePath {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", oops.Errorf("no go.mod for %s above the working directory", modulePath)
		}
		dir = parent
	}
}

func requireVersions(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read go.mod")
	}

	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to parse go.mod")
	}

	versions := make(map[string]string, len(f.Require))
	for _, req := range f.Require {
		versions[req.Mod.Path] = req.Mod.Version
	}

	return versions, nil
}
