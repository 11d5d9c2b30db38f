package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the scope name for kiln's own spans and metrics.
const InstrumentationName = "github.com/Vilsol/kiln"

// Tracer returns kiln's tracer from the global provider (no-op until the module is enabled).
func Tracer() trace.Tracer { //nolint:ireturn
	return otel.Tracer(InstrumentationName)
}

// Meter returns kiln's meter from the global provider (no-op until the module is enabled).
func Meter() metric.Meter { //nolint:ireturn
	return otel.Meter(InstrumentationName)
}
