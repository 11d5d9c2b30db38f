package fiberserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync/atomic"

	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/Vilsol/slox"
	otelfiber "github.com/gofiber/contrib/v3/otel"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/hellofresh/health-go/v5"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	_ kiln.SyncModule   = (*Module)(nil)
	_ kiln.Configurable = (*Module)(nil)
	_ kiln.NamedModule  = (*Module)(nil)
)

// Module serves the built site over HTTP with Fiber.
type Module struct {
	config Config

	server   *fiber.App
	addrPort netip.AddrPort
	root     string

	// Set by Start, read by request handlers.
	runtimeContext atomic.Pointer[context.Context]
	listenAddr     atomic.Pointer[net.TCPAddr]
}

// NewModule creates a new Fiber HTTP server module with the given options.
func NewModule(options ...Option) *Module {
	return &Module{config: NewConfig(options...)}
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.config.Name
}

// ConfigPath returns the koanf path for this module's configuration.
func (m *Module) ConfigPath() string {
	return config.ModulePath(config.CategoryHTTP, "fiber", m.config.Name)
}

// LoadConfig loads configuration from koanf.
func (m *Module) LoadConfig(k *koanf.Koanf) error {
	return m.config.LoadFromKoanf(k, m.ConfigPath())
}

// Init loads configuration, creates the Fiber app, and registers middleware and routes.
func (m *Module) Init(ctx context.Context) error {
	if err := kiln.LoadModuleConfig(kiln.Koanf(ctx), m); err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	if !m.config.Enabled {
		return nil
	}

	s, err := kiln.Invoke[*site.Site](ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to retrieve site")
	}
	m.root = s.OutputDir()

	fiberConfig, err := m.config.ToFiberConfig()
	if err != nil {
		return err
	}

	app := fiber.New(fiberConfig)

	app.Hooks().OnPreStartupMessage(func(msgData *fiber.PreStartupMessageData) error {
		msgData.PreventDefault = true
		return nil
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Files are served ahead of tracing: the otel middleware wraps the
	// response body stream, which fasthttp's file reader does not survive.
	// Requests that match no file fall through to the routes below.
	app.Get("/*", static.New(m.root))

	app.Use(otelfiber.Middleware())

	app.Use(func(c fiber.Ctx) error {
		runtimeCtx := m.runtimeContext.Load()
		if runtimeCtx == nil {
			return c.Next()
		}
		span := trace.SpanFromContext(c.Context())
		c.SetContext(trace.ContextWithSpan(*runtimeCtx, span))
		return c.Next()
	})

	if m.config.HealthPath != "" {
		h, err := kiln.Invoke[*health.Health](ctx)
		if err != nil {
			return oops.Wrapf(err, "failed to get health instance")
		}
		app.Get(m.config.HealthPath, adaptor.HTTPHandlerFunc(h.HandlerFunc))
	}

	for _, router := range m.config.Routers {
		router(app)
	}

	m.server = app

	addrPort, err := m.config.AddrPort()
	if err != nil {
		return oops.Wrapf(err, "failed to parse host address")
	}
	m.addrPort = addrPort

	return nil
}

// App returns the Fiber app, nil when the server is disabled.
func (m *Module) App() *fiber.App {
	return m.server
}

// Addr returns the address the server is listening on, nil before Start has bound it.
func (m *Module) Addr() *net.TCPAddr {
	return m.listenAddr.Load()
}

// Start begins listening and serving HTTP requests until ctx is done.
func (m *Module) Start(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	m.runtimeContext.Store(&ctx)

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", m.addrPort.String())
	if err != nil {
		return oops.Wrapf(err, "failed to listen on %s", m.addrPort)
	}

	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		m.listenAddr.Store(addr)
	}

	slox.Info(ctx, "serving site",
		slog.String("address", "http://"+listener.Addr().String()),
		slog.String("root", m.root),
	)

	var wg errgroup.Group

	wg.Go(func() error {
		return oops.Wrapf(m.server.Listener(listener), "failed to start fiber http server")
	})

	startDone := make(chan error, 1)
	go func() {
		startDone <- wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return m.Shutdown(context.WithoutCancel(ctx))
	case err := <-startDone:
		return err
	}
}

// Shutdown stops the server and waits for in-flight requests.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	if err := m.server.ShutdownWithContext(ctx); err != nil && !errors.Is(err, net.ErrClosed) {
		return oops.Wrapf(err, "failed to shut down fiber http server")
	}

	return nil
}
