package passthrough_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/pkg/passthrough"
	"github.com/Vilsol/kiln/pkg/site"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	testza.AssertNil(t, os.MkdirAll(filepath.Dir(path), 0o755))
	testza.AssertNil(t, os.WriteFile(path, []byte(content), mode))
}

func loadSite(t *testing.T, root string, register func(cfg *site.Config)) *site.Site {
	t.Helper()
	s, err := site.Load(root, func(cfg *site.Config) (*site.Dirs, error) {
		register(cfg)
		return nil, nil
	})
	testza.AssertNil(t, err)
	return s
}

func TestCopy_MirrorsDirectoryByteForByte(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := map[string]string{
		"static/style.css":           "body{}",
		"static/img/logo.svg":        "<svg/>",
		"static/fonts/deep/font.bin": string([]byte{0x00, 0x01, 0xfe, 0xff}),
	}
	for rel, content := range files {
		writeFile(t, filepath.Join(root, rel), content, 0o644)
	}
	writeFile(t, filepath.Join(root, "favicon.ico"), "ico", 0o600)

	s := loadSite(t, root, func(cfg *site.Config) {
		cfg.AddPassthroughCopy("static", "favicon.ico")
	})

	result, err := passthrough.NewCopier(passthrough.WithWorkers(2)).Copy(context.Background(), s)
	testza.AssertNil(t, err)
	testza.AssertEqual(t, 4, result.Files)
	testza.AssertEqual(t, int64(6+6+4+3), result.Bytes)

	for rel, content := range files {
		got, err := os.ReadFile(filepath.Join(root, "_site", rel))
		testza.AssertNil(t, err)
		testza.AssertEqual(t, content, string(got))
	}

	info, err := os.Stat(filepath.Join(root, "_site", "favicon.ico"))
	testza.AssertNil(t, err)
	testza.AssertEqual(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCopy_RenamedTarget(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets", "robots.txt"), "User-agent: *", 0o644)

	s := loadSite(t, root, func(cfg *site.Config) {
		cfg.AddPassthroughCopyTo("assets/robots.txt", "robots.txt")
	})

	_, err := passthrough.NewCopier().Copy(context.Background(), s)
	testza.AssertNil(t, err)

	got, err := os.ReadFile(filepath.Join(root, "_site", "robots.txt"))
	testza.AssertNil(t, err)
	testza.AssertEqual(t, "User-agent: *", string(got))
}

func TestCopy_MissingSource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := loadSite(t, root, func(cfg *site.Config) {
		cfg.AddPassthroughCopy("static")
	})

	_, err := passthrough.NewCopier().Copy(context.Background(), s)
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "does not exist")

	_, err = os.Stat(filepath.Join(root, "_site"))
	testza.AssertTrue(t, os.IsNotExist(err))
}

func TestCopy_NeverCopiesOutputIntoItself(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.txt"), "hi", 0o644)
	writeFile(t, filepath.Join(root, "_site", "old.txt"), "stale", 0o644)

	s := loadSite(t, root, func(cfg *site.Config) {
		cfg.AddPassthroughCopyTo(".", "mirror")
	})

	result, err := passthrough.NewCopier().Copy(context.Background(), s)
	testza.AssertNil(t, err)
	testza.AssertEqual(t, 1, result.Files)

	_, err = os.Stat(filepath.Join(root, "_site", "mirror", "_site"))
	testza.AssertTrue(t, os.IsNotExist(err))
}

func TestCopy_SourceInsideOutputRejected(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "_site", "x.txt"), "x", 0o644)

	s := loadSite(t, root, func(cfg *site.Config) {
		cfg.AddPassthroughCopy("_site/x.txt")
	})

	_, err := passthrough.NewCopier().Copy(context.Background(), s)
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "inside the output directory")
}

func TestCopy_CancelledContext(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "static", "a.txt"), "a", 0o644)

	s := loadSite(t, root, func(cfg *site.Config) {
		cfg.AddPassthroughCopy("static")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := passthrough.NewCopier().Copy(ctx, s)
	testza.AssertNotNil(t, err)
}

func TestWithin(t *testing.T) {
	t.Parallel()

	base := filepath.Join("a", "b")
	testza.AssertTrue(t, passthrough.Within(base, base))
	testza.AssertTrue(t, passthrough.Within(filepath.Join(base, "c"), base))
	testza.AssertFalse(t, passthrough.Within("a", base))
	testza.AssertFalse(t, passthrough.Within(filepath.Join("a", "bc"), base))
	testza.AssertTrue(t, passthrough.Within(filepath.Join(base, "..foo"), base))
}
