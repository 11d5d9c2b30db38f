package main

import (
	"bytes"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/internal/cli"
	"gopkg.in/yaml.v3"
)

func kilnReference(t *testing.T) reference {
	t.Helper()

	root, err := moduleRoot()
	testza.AssertNil(t, err)

	return newReference(root, cli.Flags(), documented())
}

func findKey(ref reference, key string) (keyDoc, bool) {
	for _, mod := range ref.Modules {
		for _, k := range mod.Keys {
			if k.Key == key {
				return k, true
			}
		}
	}
	return keyDoc{}, false
}

func TestReference_Keys(t *testing.T) {
	t.Parallel()

	ref := kilnReference(t)

	tests := []struct {
		key      string
		typ      string
		def      string
		env      string
		flag     string
		describe bool
	}{
		{
			key:      "modules.site.site.default.passthrough",
			typ:      "[]string",
			env:      "KILN_MODULES_SITE_SITE_DEFAULT_PASSTHROUGH",
			describe: true,
		},
		{
			key:      "modules.site.site.default.output",
			typ:      "string",
			env:      "KILN_MODULES_SITE_SITE_DEFAULT_OUTPUT",
			flag:     "output",
			describe: true,
		},
		{
			key:      "modules.build.build.default.debounce",
			typ:      "time.Duration",
			def:      "200ms",
			env:      "KILN_MODULES_BUILD_BUILD_DEFAULT_DEBOUNCE",
			describe: true,
		},
		{
			key:  "modules.build.build.default.watch",
			typ:  "bool",
			env:  "KILN_MODULES_BUILD_BUILD_DEFAULT_WATCH",
			flag: "watch",
		},
		{
			key:  "modules.http.fiber.default.port",
			typ:  "uint16",
			def:  "8080",
			env:  "KILN_MODULES_HTTP_FIBER_DEFAULT_PORT",
			flag: "port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			doc, ok := findKey(ref, tt.key)
			testza.AssertTrue(t, ok)
			testza.AssertEqual(t, tt.typ, doc.Type)
			testza.AssertEqual(t, tt.def, doc.Default)
			testza.AssertEqual(t, tt.env, doc.Env)
			testza.AssertEqual(t, tt.flag, doc.Flag)
			if tt.describe {
				testza.AssertNotEqual(t, "", doc.Description)
			}
		})
	}
}

func TestReference_FiberExtraAndCodeOnly(t *testing.T) {
	t.Parallel()

	ref := kilnReference(t)

	var fiber *moduleDoc
	for i := range ref.Modules {
		if ref.Modules[i].Path == "modules.http.fiber.default" {
			fiber = &ref.Modules[i]
		}
	}
	testza.AssertNotNil(t, fiber)

	testza.AssertNotNil(t, fiber.Extra)
	testza.AssertEqual(t, "Config", fiber.Extra.Type)
	testza.AssertEqual(t, "github.com/gofiber/fiber/v3", fiber.Extra.Package)
	testza.AssertNotEqual(t, "", fiber.Extra.Version)

	options := make([]string, 0, len(fiber.CodeOnly))
	for _, c := range fiber.CodeOnly {
		options = append(options, c.Option)
	}
	testza.AssertContains(t, options, "WithRouter")

	for _, k := range fiber.Keys {
		testza.AssertNotEqual(t, "modules.http.fiber.default.raw", k.Key)
	}
}

func TestReference_Flags(t *testing.T) {
	t.Parallel()

	ref := kilnReference(t)

	testza.AssertEqual(t, len(cli.Flags()), len(ref.Flags))
	for _, f := range ref.Flags {
		_, ok := findKey(ref, f.Key)
		testza.AssertTrue(t, ok, f.Flag)
	}
}

func TestRun_WritesYAML(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	testza.AssertNil(t, run(nil, &out))

	var decoded reference
	testza.AssertNil(t, yaml.Unmarshal(out.Bytes(), &decoded))
	testza.AssertEqual(t, len(documented()), len(decoded.Modules))

	_, ok := findKey(decoded, "modules.site.site.default.passthrough")
	testza.AssertTrue(t, ok)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		ident    string
		expected string
	}{
		{"Debounce is how long the watcher waits.\n", "Debounce", "How long the watcher waits"},
		{"WithPort sets the listen port.", "WithPort", "Sets the listen port"},
		{"Instance name", "Name", "Instance name"},
		{"Root is the site directory. Defaults to the cwd.", "Root", "The site directory"},
		{"", "Name", ""},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			testza.AssertEqual(t, tt.expected, summary(tt.text, tt.ident))
		})
	}
}
