package kiln

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vilsol/slox"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"github.com/sourcegraph/conc/pool"
)

const DefaultShutdownTimeout = 30 * time.Second

// Runtime orchestrates module initialization, startup, and shutdown.
type Runtime struct {
	modules         []Module
	shutdownTimeout time.Duration
}

// NewRuntime creates a runtime with the given modules (order matters for init).
func NewRuntime(modules ...Module) *Runtime {
	return &Runtime{
		modules:         modules,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// WithShutdownTimeout overrides how long modules get to shut down.
func (r *Runtime) WithShutdownTimeout(timeout time.Duration) *Runtime {
	r.shutdownTimeout = timeout
	return r
}

// Run starts the runtime with a background context.
func (r *Runtime) Run() error {
	return r.RunContext(context.Background())
}

// RunContext initializes and starts all modules, waits until every module finished
// starting or a shutdown signal arrived, then shuts all modules down.
func (r *Runtime) RunContext(ctx context.Context) error {
	injector := do.New()
	ctx = WithInjector(ctx, injector)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.initModules(ctx, runCtx); err != nil {
		return err
	}

	logger := r.resolveLogger(ctx, injector)
	ctx = slox.Into(ctx, logger)
	runCtx = slox.Into(runCtx, logger)

	startDone := make(chan error, 1)
	go func() {
		startDone <- r.startModules(runCtx)
	}()

	select {
	case <-runCtx.Done():
		slox.Info(ctx, "shutdown signal received")
	case err := <-startDone:
		if err != nil {
			slox.Error(ctx, "modules failed", slog.Any("error", err))
			_ = r.shutdownModules(ctx)
			return err
		}
	}

	stop()

	return r.shutdownModules(ctx)
}

func (r *Runtime) initModules(ctx context.Context, runCtx context.Context) error {
	// Sequential: later modules resolve what earlier ones provided
	for _, module := range r.modules {
		if err := module.Init(runCtx); err != nil {
			slox.Error(ctx, "failed initializing modules", slog.Any("error", err))
			return oops.
				With("name", moduleName(module)).
				Wrapf(err, "failed initializing module")
		}
	}

	return nil
}

func (r *Runtime) resolveLogger(ctx context.Context, injector do.Injector) *slog.Logger {
	logger, err := do.Invoke[*slog.Logger](injector)
	if err == nil && logger != nil {
		return logger
	}

	slox.Warn(ctx, "failed to retrieve logger, continuing with default logger", slog.Any("error", err))

	logger = slog.Default()
	do.Provide(injector, func(_ do.Injector) (*slog.Logger, error) {
		return logger, nil
	})

	return logger
}

func (r *Runtime) startModules(ctx context.Context) error {
	startPool := pool.New().
		WithErrors().
		WithContext(ctx).
		WithCancelOnError()

	for _, module := range r.modules {
		startPool.Go(func(ctx context.Context) error {
			name := moduleName(module)

			var err error
			switch m := module.(type) {
			case AsyncModule:
				err = m.StartAsync(ctx)
			case SyncModule:
				err = m.Start(ctx)
			default:
				slox.Debug(ctx, "skipping module without a start function", slog.String("name", name))
				return nil
			}

			if err != nil {
				slox.Error(ctx, "failed starting module", slog.String("name", name), slog.Any("error", err))
				return oops.
					With("name", name).
					Wrapf(err, "failed starting module")
			}

			return nil
		})
	}

	return startPool.Wait() //nolint:wrapcheck
}

func (r *Runtime) shutdownModules(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.shutdownTimeout)
	defer cancel()

	shutdownPool := pool.New().
		WithErrors().
		WithContext(shutdownCtx)

	for _, module := range r.modules {
		shutdownPool.Go(func(ctx context.Context) error {
			name := moduleName(module)

			if err := module.Shutdown(ctx); err != nil {
				slox.Error(ctx, "failed shutting down module", slog.String("name", name), slog.Any("error", err))
				return oops.
					With("name", name).
					Wrapf(err, "failed shutting down module")
			}

			return nil
		})
	}

	if err := shutdownPool.Wait(); err != nil {
		slox.Error(ctx, "failed shutting down modules", slog.Any("error", err))
		return err //nolint:wrapcheck
	}

	return nil
}

func moduleName(module Module) string {
	if named, ok := module.(NamedModule); ok {
		return fmt.Sprintf("%T(%s)", module, named.Name())
	}
	return fmt.Sprintf("%T", module)
}
