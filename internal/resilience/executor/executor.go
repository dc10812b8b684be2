// Package executor provides the single entry point for invoking operations
// against managed dependencies. It wraps each unit of work with circuit
// breaker checks, timing, health bookkeeping, error reporting, and fallback
// substitution.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"careerforge/internal/observability/metrics"
	"careerforge/internal/observability/tracing"
	"careerforge/internal/resilience/breaker"
	"careerforge/internal/resilience/fallback"
	"careerforge/internal/resilience/health"
	"careerforge/internal/resilience/report"
)

// Operation is a unit of work against a managed dependency. It receives the
// caller's context unchanged: the executor imposes no timeout or
// cancellation of its own, that is the operation's or its transport's job.
type Operation func(ctx context.Context) (any, error)

// Result is the outcome of one Execute call. Execute always returns a
// Result, never an error and never a panic; failures are values.
type Result struct {
	Succeeded    bool          `json:"succeeded"`
	Value        any           `json:"value,omitempty"`
	ErrorID      string        `json:"error_id,omitempty"`
	FallbackUsed bool          `json:"fallback_used"`
	Latency      time.Duration `json:"latency"`
}

// Executor coordinates the breaker table, health registry, fallback catalog,
// and error reporter around each dependency call. It is safe for concurrent
// use and deliberately never retries: many wrapped operations are not
// idempotent, so retrying is left to callers who know their semantics.
type Executor struct {
	breakers  *breaker.Table
	health    *health.Registry
	fallbacks *fallback.Catalog
	reporter  *report.Reporter
	logger    *slog.Logger
}

// New creates an executor over the shared resilience components.
func New(breakers *breaker.Table, registry *health.Registry, fallbacks *fallback.Catalog, reporter *report.Reporter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		breakers:  breakers,
		health:    registry,
		fallbacks: fallbacks,
		reporter:  reporter,
		logger:    logger,
	}
}

// Execute runs op against the named service.
//
// If the service's breaker is open the call fails fast: op is never invoked
// and the catalog is consulted for a degraded response. Otherwise op runs
// and its outcome updates the breaker and the health registry; on failure an
// audit record is emitted and a fallback is attempted. Rejections by an open
// breaker carry no error id, since no dependency error occurred.
func (e *Executor) Execute(ctx context.Context, service, operation string, op Operation, meta map[string]any) Result {
	ctx, span := tracing.GetTracer().Start(ctx, "resilience.execute",
		trace.WithAttributes(
			attribute.String("resilience.service", service),
			attribute.String("resilience.operation", operation),
		))
	defer span.End()

	permit, admitted := e.breakers.Allow(service)
	if !admitted {
		value, used := e.fallbacks.Get(service, operation, meta)
		e.logger.Warn("operation rejected by open circuit breaker",
			slog.String("service", service),
			slog.String("operation", operation),
			slog.Bool("fallback_used", used))
		metrics.RecordOperation(service, operation, metrics.OutcomeRejected, 0)
		if used {
			metrics.RecordFallback(service, operation)
		}
		span.SetAttributes(attribute.Bool("resilience.rejected", true))
		return Result{FallbackUsed: used, Value: value}
	}

	start := time.Now()
	value, opErr := invoke(ctx, op)
	latency := time.Since(start)

	if opErr == nil {
		permit(true)
		e.health.MarkHealthy(service)
		metrics.RecordOperation(service, operation, metrics.OutcomeSuccess, latency)
		metrics.SetServiceHealthy(service, true)
		return Result{Succeeded: true, Value: value, Latency: latency}
	}

	permit(false)
	e.health.MarkUnhealthy(service, opErr)
	metrics.RecordOperation(service, operation, metrics.OutcomeFailure, latency)
	metrics.SetServiceHealthy(service, false)
	span.RecordError(opErr)

	rec := e.reporter.Report(ctx, service, operation, opErr, meta)
	fb, used := e.fallbacks.Get(service, operation, meta)
	if used {
		metrics.RecordFallback(service, operation)
	}
	return Result{
		ErrorID:      rec.ErrorID,
		FallbackUsed: used,
		Value:        fb,
		Latency:      latency,
	}
}

// invoke runs op and converts a panic into an error, so a misbehaving
// callable cannot escape the executor.
func invoke(ctx context.Context, op Operation) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = fmt.Errorf("operation panicked: %v", p)
		}
	}()
	return op(ctx)
}
