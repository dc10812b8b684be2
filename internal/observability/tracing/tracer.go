// Package tracing provides OpenTelemetry tracing integration.
//
// The resilience core opens a span per executed operation; the admin HTTP
// server traces each request and propagates W3C trace context.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the careerforge backend.
var tracer = otel.Tracer("careerforge")

// GetTracer returns the global tracer for creating spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
