// Package resilience provides failure isolation for the careerforge backend.
// It wires the circuit breaker table, health registry, fallback catalog,
// error reporter, and operation executor into one owned object graph so a
// fault in one business subsystem cannot cascade into total platform
// failure.
//
// The package supports:
//   - Per-service circuit breakers with a single half-open probe
//   - Degraded-mode fallbacks looked up per (service, operation)
//   - Fire-and-forget audit and client notification on failure
//   - Aggregated health reporting for probes and operators
//
// Usage example:
//
//	core := resilience.NewCore(resilience.Options{
//	    Breaker: breaker.DefaultConfig(),
//	    Audit:   auditSink,
//	}, logger)
//	result := core.Executor.Execute(ctx, "matcher", "find_matches", op, meta)
package resilience

import (
	"log/slog"

	"github.com/sony/gobreaker"

	"careerforge/internal/observability/metrics"
	"careerforge/internal/resilience/breaker"
	"careerforge/internal/resilience/executor"
	"careerforge/internal/resilience/fallback"
	"careerforge/internal/resilience/health"
	"careerforge/internal/resilience/report"
)

// Options configures a Core.
type Options struct {
	// Breaker is the shared breaker configuration. Zero values fall back to
	// breaker.DefaultConfig.
	Breaker breaker.Config

	// Services are the known dependency names, registered healthy at startup.
	Services []string

	// Audit receives every error record. Nil disables audit dispatch.
	Audit report.AuditSink

	// Notifier receives best-effort client notifications. Nil disables them.
	Notifier report.Notifier
}

// Core owns the shared resilience state for one process. Construct it once
// at startup and pass it by handle to all call sites; a fresh Core per test
// gives isolated breaker and health tables.
type Core struct {
	Breakers   *breaker.Table
	Health     *health.Registry
	Fallbacks  *fallback.Catalog
	Reporter   *report.Reporter
	Executor   *executor.Executor
	Aggregator *health.Aggregator
}

// NewCore builds the full resilience object graph. Breaker state changes
// are mirrored into the breaker state metric.
func NewCore(opts Options, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Breaker
	userHook := cfg.OnStateChange
	cfg.OnStateChange = func(service string, from, to gobreaker.State) {
		metrics.SetBreakerState(service, to.String())
		if userHook != nil {
			userHook(service, from, to)
		}
	}

	breakers := breaker.NewTable(cfg, logger)
	registry := health.NewRegistry(opts.Services...)
	fallbacks := fallback.NewCatalog()
	reporter := report.New(opts.Audit, opts.Notifier, logger)

	return &Core{
		Breakers:   breakers,
		Health:     registry,
		Fallbacks:  fallbacks,
		Reporter:   reporter,
		Executor:   executor.New(breakers, registry, fallbacks, reporter, logger),
		Aggregator: health.NewAggregator(registry, breakers, logger),
	}
}

// Close flushes in-flight reporter dispatches. Call at shutdown.
func (c *Core) Close() {
	c.Reporter.Flush()
}
