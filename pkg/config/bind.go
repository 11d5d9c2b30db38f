package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/slox"
	"github.com/knadh/koanf/v2"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Validatable is implemented by config structs that need validation after unmarshalling.
type Validatable interface {
	Validate() error
}

// Binding is a thread-safe, cached config accessor with hot-reload support.
type Binding[T any] struct {
	cached   atomic.Pointer[T]
	mu       sync.Mutex
	onChange []func(*T)
}

// Get returns the cached config value (zero-alloc atomic pointer load).
func (b *Binding[T]) Get() *T {
	return b.cached.Load()
}

// OnChange registers a callback invoked with the new config value after each reload.
func (b *Binding[T]) OnChange(fn func(*T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

func (b *Binding[T]) update(cfg *T) {
	b.cached.Store(cfg)

	b.mu.Lock()
	callbacks := make([]func(*T), len(b.onChange))
	copy(callbacks, b.onChange)
	b.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// BindModule binds a config struct to a koanf path.
type BindModule[T any] struct {
	path     string
	defaults func() T
	binding  *Binding[T]
}

// Bind creates a module that binds a config struct to a koanf path and registers
// it in DI as *Binding[T]. Path segments are joined with "." (e.g. "app", "limits" -> "app.limits").
func Bind[T any](pathSegments ...string) *BindModule[T] {
	return &BindModule[T]{
		path:    strings.Join(pathSegments, "."),
		binding: &Binding[T]{},
	}
}

// WithDefaults sets the value the config is unmarshalled over.
func (m *BindModule[T]) WithDefaults(defaults func() T) *BindModule[T] {
	m.defaults = defaults
	return m
}

func (m *BindModule[T]) unmarshalAndValidate(k *koanf.Koanf) (*T, error) {
	cfg := new(T)
	if m.defaults != nil {
		*cfg = m.defaults()
	}

	if err := k.Unmarshal(m.path, cfg); err != nil {
		return nil, oops.Wrapf(err, "failed to unmarshal config at path %q", m.path)
	}

	if v, ok := any(cfg).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, oops.Wrapf(err, "config validation failed at path %q", m.path)
		}
	}

	return cfg, nil
}

// Init unmarshals the bound config and subscribes to reloads.
func (m *BindModule[T]) Init(ctx context.Context) error {
	k, err := kiln.Invoke[*koanf.Koanf](ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to retrieve koanf instance")
	}

	cfg, err := m.unmarshalAndValidate(k)
	if err != nil {
		return err
	}

	m.binding.cached.Store(cfg)

	kiln.Provide(ctx, func(_ do.Injector) (*Binding[T], error) {
		return m.binding, nil
	})

	if notifier, err := kiln.Invoke[ReloadNotifier](ctx); err == nil {
		notifier.OnReload(func(k *koanf.Koanf) {
			if err := m.LoadConfig(k); err != nil {
				// Keep serving the previous value
				slox.Warn(ctx, "ignoring invalid reloaded config", slog.String("path", m.path), slog.Any("error", err))
			}
		})
	}

	return nil
}

// Shutdown is a no-op.
func (m *BindModule[T]) Shutdown(_ context.Context) error {
	return nil
}

// ConfigPath returns the bound koanf path.
func (m *BindModule[T]) ConfigPath() string {
	return m.path
}

// LoadConfig re-reads the bound path and publishes the new value.
func (m *BindModule[T]) LoadConfig(k *koanf.Koanf) error {
	cfg, err := m.unmarshalAndValidate(k)
	if err != nil {
		return err
	}

	m.binding.update(cfg)

	return nil
}

// Get returns the cached config value from DI. Zero-alloc hot path.
func Get[T any](ctx context.Context) *T {
	return do.MustInvoke[*Binding[T]](kiln.GetInjector(ctx)).Get()
}

// GetBinding returns the Binding for advanced use (OnChange callbacks).
func GetBinding[T any](ctx context.Context) *Binding[T] {
	return do.MustInvoke[*Binding[T]](kiln.GetInjector(ctx))
}
