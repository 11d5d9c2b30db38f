// Package kiln is the module runtime of the kiln static-site host.
//
// A host is a list of modules. Every module is initialized in order, then all
// modules that can start are started concurrently. One-shot modules (a single
// build) return from Start when done; long-running modules (watch, serve) return
// when the context is cancelled. Once every start returned, or a signal arrived,
// all modules are shut down.
package kiln

import (
	"context"
)

// Module is the base interface for all kiln modules.
type Module interface {
	Init(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// SyncModule extends Module with a blocking Start method.
// Start returns when the module's work is finished or ctx is cancelled.
type SyncModule interface {
	Module
	Start(ctx context.Context) error
}

// AsyncModule extends Module with a non-blocking StartAsync method for background tasks.
type AsyncModule interface {
	Module
	StartAsync(ctx context.Context) error
}
