package kiln_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/samber/do/v2"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeModule struct {
	name     string
	rec      *recorder
	initErr  error
	startErr error
}

func (m *fakeModule) Init(_ context.Context) error {
	m.rec.add("init:" + m.name)
	return m.initErr
}

func (m *fakeModule) Shutdown(_ context.Context) error {
	m.rec.add("shutdown:" + m.name)
	return nil
}

type fakeSyncModule struct {
	fakeModule
}

func (m *fakeSyncModule) Start(_ context.Context) error {
	m.rec.add("start:" + m.name)
	return m.startErr
}

type blockingModule struct {
	fakeModule
}

func (m *blockingModule) Start(ctx context.Context) error {
	<-ctx.Done()
	m.rec.add("stopped:" + m.name)
	return nil
}

type providerModule struct {
	fakeModule
}

func (m *providerModule) Init(ctx context.Context) error {
	kiln.ProvideValue(ctx, "provided")
	return m.fakeModule.Init(ctx)
}

type consumerModule struct {
	fakeModule
	got string
}

func (m *consumerModule) Init(ctx context.Context) error {
	value, err := do.Invoke[string](kiln.GetInjector(ctx))
	if err != nil {
		return err
	}
	m.got = value
	return m.fakeModule.Init(ctx)
}

func TestRuntime_InitsInOrderAndShutsDown(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	runtime := kiln.NewRuntime(
		&fakeModule{name: "a", rec: rec},
		&fakeSyncModule{fakeModule{name: "b", rec: rec}},
	)

	err := runtime.RunContext(context.Background())
	testza.AssertNil(t, err)

	events := rec.snapshot()
	testza.AssertEqual(t, []string{"init:a", "init:b"}, events[:2])
	testza.AssertContains(t, events, "start:b")
	testza.AssertContains(t, events, "shutdown:a")
	testza.AssertContains(t, events, "shutdown:b")
}

func TestRuntime_InitErrorStopsBeforeStart(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	runtime := kiln.NewRuntime(
		&fakeSyncModule{fakeModule{name: "a", rec: rec, initErr: errors.New("boom")}},
		&fakeSyncModule{fakeModule{name: "b", rec: rec}},
	)

	err := runtime.RunContext(context.Background())
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "boom")
	testza.AssertEqual(t, []string{"init:a"}, rec.snapshot())
}

func TestRuntime_StartErrorCancelsOtherModules(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	runtime := kiln.NewRuntime(
		&blockingModule{fakeModule{name: "server", rec: rec}},
		&fakeSyncModule{fakeModule{name: "build", rec: rec, startErr: errors.New("build failed")}},
	).WithShutdownTimeout(time.Second)

	err := runtime.RunContext(context.Background())
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "build failed")

	testza.AssertContains(t, rec.snapshot(), "shutdown:server")
}

func TestRuntime_ContextCancellationStopsBlockingModules(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	runtime := kiln.NewRuntime(&blockingModule{fakeModule{name: "server", rec: rec}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := runtime.RunContext(ctx)
	testza.AssertNil(t, err)
	testza.AssertContains(t, rec.snapshot(), "shutdown:server")
}

func TestRuntime_SharesInjectorBetweenModules(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	consumer := &consumerModule{fakeModule: fakeModule{name: "consumer", rec: rec}}
	runtime := kiln.NewRuntime(
		&providerModule{fakeModule{name: "provider", rec: rec}},
		consumer,
	)

	err := runtime.RunContext(context.Background())
	testza.AssertNil(t, err)
	testza.AssertEqual(t, "provided", consumer.got)
}
