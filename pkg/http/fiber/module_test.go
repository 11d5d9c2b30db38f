package fiberserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	fiberserver "github.com/Vilsol/kiln/pkg/http/fiber"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/gofiber/fiber/v3"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/samber/do/v2"
)

func serverContext(t *testing.T) context.Context {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"_site/index.html":       "home",
		"_site/about/index.html": "about",
		"_site/static/style.css": "body{}",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		testza.AssertNil(t, os.MkdirAll(filepath.Dir(path), 0o755))
		testza.AssertNil(t, os.WriteFile(path, []byte(content), 0o600))
	}

	s, err := site.Load(root, func(*site.Config) (*site.Dirs, error) { return nil, nil })
	testza.AssertNil(t, err)

	h, err := healthgo.New(healthgo.WithComponent(healthgo.Component{Name: "kiln"}))
	testza.AssertNil(t, err)

	injector := do.New()
	do.ProvideValue(injector, s)
	do.ProvideValue(injector, h)

	return kiln.WithInjector(context.Background(), injector)
}

func get(t *testing.T, mod *fiberserver.Module, target string) (int, string) {
	t.Helper()

	resp, err := mod.App().Test(httptest.NewRequest(http.MethodGet, target, nil))
	testza.AssertNil(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	testza.AssertNil(t, err)

	return resp.StatusCode, string(body)
}

func TestModule_DisabledDoesNothing(t *testing.T) {
	t.Parallel()

	ctx := kiln.WithInjector(context.Background(), do.New())

	mod := fiberserver.NewModule()
	testza.AssertNil(t, mod.Init(ctx))
	testza.AssertNil(t, mod.App())
	testza.AssertNil(t, mod.Start(ctx))
	testza.AssertNil(t, mod.Shutdown(ctx))
}

func TestModule_ServesOutputDirectory(t *testing.T) {
	t.Parallel()

	mod := fiberserver.NewModule(fiberserver.WithEnabled(true), fiberserver.WithHealthPath("/healthz"))
	testza.AssertNil(t, mod.Init(serverContext(t)))

	tests := []struct {
		target string
		status int
		body   string
	}{
		{target: "/", status: http.StatusOK, body: "home"},
		{target: "/about/", status: http.StatusOK, body: "about"},
		{target: "/static/style.css", status: http.StatusOK, body: "body{}"},
		{target: "/missing.html", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		status, body := get(t, mod, tt.target)
		testza.AssertEqual(t, tt.status, status, tt.target)
		if tt.body != "" {
			testza.AssertEqual(t, tt.body, body, tt.target)
		}
	}

	status, body := get(t, mod, "/healthz")
	testza.AssertEqual(t, http.StatusOK, status)
	testza.AssertContains(t, body, `"status":"OK"`)
}

func TestModule_ServesFilesOverListener(t *testing.T) {
	t.Parallel()

	mod := fiberserver.NewModule(
		fiberserver.WithEnabled(true),
		fiberserver.WithPort(0),
		fiberserver.WithHealthPath("/.kiln/health"),
		fiberserver.WithRouter(func(app *fiber.App) {
			app.Get("/api/ping", func(c fiber.Ctx) error { return c.SendString("pong") })
		}),
	)

	ctx, cancel := context.WithCancel(serverContext(t))
	defer cancel()

	testza.AssertNil(t, mod.Init(ctx))

	done := make(chan error, 1)
	go func() { done <- mod.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for mod.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}
	base := "http://" + mod.Addr().String()

	fetch := func(path string) (int, string) {
		resp, err := http.Get(base + path) //nolint:noctx
		testza.AssertNil(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		testza.AssertNil(t, err)
		return resp.StatusCode, string(body)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			status, body := fetch("/static/style.css")
			testza.AssertEqual(t, http.StatusOK, status)
			testza.AssertEqual(t, "body{}", body)
		})
	}
	wg.Wait()

	status, body := fetch("/about/")
	testza.AssertEqual(t, http.StatusOK, status)
	testza.AssertEqual(t, "about", body)

	status, body = fetch("/api/ping")
	testza.AssertEqual(t, http.StatusOK, status)
	testza.AssertEqual(t, "pong", body)

	status, _ = fetch("/.kiln/health")
	testza.AssertEqual(t, http.StatusOK, status)

	status, _ = fetch("/missing.html")
	testza.AssertEqual(t, http.StatusNotFound, status)

	cancel()
	select {
	case err := <-done:
		testza.AssertNil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestConfig_ToFiberConfig(t *testing.T) {
	t.Parallel()

	cfg := fiberserver.NewConfig()
	cfg.Raw = map[string]any{"app_name": "kiln", "read_timeout": "5s"}

	fc, err := cfg.ToFiberConfig()
	testza.AssertNil(t, err)
	testza.AssertEqual(t, "kiln", fc.AppName)
	testza.AssertEqual(t, "5s", fc.ReadTimeout.String())
}

func TestConfig_AddrPort(t *testing.T) {
	t.Parallel()

	cfg := fiberserver.NewConfig(fiberserver.WithPort(9000))
	addr, err := cfg.AddrPort()
	testza.AssertNil(t, err)
	testza.AssertEqual(t, "127.0.0.1:9000", addr.String())

	cfg.Host = "localhost"
	_, err = cfg.AddrPort()
	testza.AssertNotNil(t, err)
}
