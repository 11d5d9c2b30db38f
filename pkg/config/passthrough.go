package config

import "reflect"

// Passthrough captures arbitrary config keys (via koanf's ",remain") that are handed
// to a third-party config struct T unchanged.
type Passthrough[T any] map[string]any

// Target reports the struct the captured keys are decoded into.
func (Passthrough[T]) Target() reflect.Type {
	return reflect.TypeFor[T]()
}
