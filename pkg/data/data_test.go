package data_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/pkg/data"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	testza.AssertNil(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, dir, "site.yaml", "title: Board Games\nauthors:\n  - vilsol\n")
	write(t, dir, "players.json", `{"vilsol": {"plays": 3}}`)
	write(t, dir, "limits.toml", "max = 8\n")
	write(t, dir, "notes.txt", "ignored")
	write(t, dir, ".hidden.json", `{"x": 1}`)
	testza.AssertNil(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	got, err := data.Load(dir)
	testza.AssertNil(t, err)
	testza.AssertLen(t, got, 3)

	siteData, ok := got["site"].(map[string]any)
	testza.AssertTrue(t, ok)
	testza.AssertEqual(t, "Board Games", siteData["title"])

	players, ok := got["players"].(map[string]any)
	testza.AssertTrue(t, ok)
	testza.AssertNotNil(t, players["vilsol"])

	limits, ok := got["limits"].(map[string]any)
	testza.AssertTrue(t, ok)
	testza.AssertEqual(t, int64(8), limits["max"])
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	got, err := data.Load(filepath.Join(t.TempDir(), "_data"))
	testza.AssertNil(t, err)
	testza.AssertNotNil(t, got)
	testza.AssertLen(t, got, 0)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "malformed json",
			files: map[string]string{"players.json": `{"a": `},
			want:  "players.json",
		},
		{
			name:  "json array",
			files: map[string]string{"list.json": `["a"]`},
			want:  "list.json",
		},
		{
			name:  "duplicate stem",
			files: map[string]string{"players.json": `{}`, "players.yaml": "a: 1\n"},
			want:  `data key "players"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for name, content := range tt.files {
				write(t, dir, name, content)
			}

			got, err := data.Load(dir)
			testza.AssertNil(t, got)
			testza.AssertNotNil(t, err)
			testza.AssertContains(t, err.Error(), tt.want)
		})
	}
}
