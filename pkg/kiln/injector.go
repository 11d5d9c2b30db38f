package kiln

import (
	"context"

	"github.com/knadh/koanf/v2"
	"github.com/samber/do/v2"
)

type injectorKey struct{}

// GetInjector returns the injector from the context.
func GetInjector(ctx context.Context) do.Injector { //nolint:ireturn
	injector, ok := ctx.Value(injectorKey{}).(do.Injector)
	if !ok {
		panic("injector not found in context")
	}
	return injector
}

// WithInjector returns a new context with the injector set.
func WithInjector(ctx context.Context, injector do.Injector) context.Context {
	return context.WithValue(ctx, injectorKey{}, injector)
}

// Provide injects a provider into the injector.
func Provide[T any](ctx context.Context, provider do.Provider[T]) {
	do.Provide(GetInjector(ctx), provider)
}

// ProvideValue injects an already constructed value into the injector.
func ProvideValue[T any](ctx context.Context, value T) {
	do.ProvideValue(GetInjector(ctx), value)
}

// Invoke resolves a service from the injector carried by ctx.
func Invoke[T any](ctx context.Context) (T, error) { //nolint:ireturn
	return do.Invoke[T](GetInjector(ctx)) //nolint:wrapcheck
}

// Koanf returns the koanf instance provided by the config module, or nil when the
// runtime was started without one.
func Koanf(ctx context.Context) *koanf.Koanf {
	k, err := do.Invoke[*koanf.Koanf](GetInjector(ctx))
	if err != nil {
		return nil
	}
	return k
}
