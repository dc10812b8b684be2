// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all resilience-core metrics including:
//   - Operation outcomes and latency per (service, operation)
//   - Fallback substitutions
//   - Circuit breaker state per service
//   - Service health gauges
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "careerforge/internal/observability/metrics"
//
//	func callMatcher() {
//	    start := time.Now()
//	    // ... invoke the operation ...
//	    metrics.RecordOperation("matcher", "find_matches", metrics.OutcomeSuccess, time.Since(start))
//	}
package metrics
