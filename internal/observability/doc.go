// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Request tracing across the mediation layer
//   - Structured logging with context propagation
//   - Prometheus metrics for breaker and health monitoring
//   - SLO tracking for the mediated subsystems
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics for operations, breakers, and health probes
//   - tracing: OpenTelemetry tracing integration
//   - slo: Service level objective gauges fed by the probe cycle
//
// Example usage:
//
//	import (
//	    "careerforge/internal/observability/logging"
//	    "careerforge/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("mediator started")
//
//	    metrics.RecordOperation("matcher", "search", metrics.OutcomeSuccess, time.Second)
//	}
package observability
