package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for OperationsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected" // fail-fast rejection by an open breaker
)

// Resilience metrics track dependency operations executed through the core.
var (
	// OperationsTotal counts executed operations by service, operation, and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_operations_total",
			Help: "Total number of dependency operations by outcome",
		},
		[]string{"service", "operation", "outcome"},
	)

	// OperationDuration measures invoked operation latency in seconds.
	// Breaker-open rejections are not observed here: nothing was invoked.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resilience_operation_duration_seconds",
			Help:    "Dependency operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	// FallbacksTotal counts degraded responses substituted from the catalog.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_fallbacks_total",
			Help: "Total number of fallback responses served",
		},
		[]string{"service", "operation"},
	)

	// BreakerState tracks each service's circuit breaker state.
	// Values: 0=closed, 1=open, 2=half-open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_breaker_state",
			Help: "Circuit breaker state per service (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// ServiceHealthy tracks each service's last known health (1 healthy, 0 unhealthy).
	ServiceHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_service_healthy",
			Help: "Last known health per service (1=healthy, 0=unhealthy)",
		},
		[]string{"service"},
	)

	// HealthProbeDuration measures the duration of full aggregation cycles.
	HealthProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resilience_health_probe_duration_seconds",
			Help:    "Duration of a full health aggregation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordOperation records one executed (or rejected) operation.
// Latency is only observed for outcomes where the callable actually ran.
func RecordOperation(service, operation, outcome string, latency time.Duration) {
	OperationsTotal.WithLabelValues(service, operation, outcome).Inc()
	if outcome != OutcomeRejected {
		OperationDuration.WithLabelValues(service, operation).Observe(latency.Seconds())
	}
}

// RecordFallback records one degraded response served from the catalog.
func RecordFallback(service, operation string) {
	FallbacksTotal.WithLabelValues(service, operation).Inc()
}

// SetBreakerState updates the breaker state gauge from a state name as
// reported by the breaker table ("closed", "open", "half-open").
func SetBreakerState(service, state string) {
	var value float64
	switch state {
	case "open":
		value = 1
	case "half-open":
		value = 2
	}
	BreakerState.WithLabelValues(service).Set(value)
}

// SetServiceHealthy updates the per-service health gauge.
func SetServiceHealthy(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	ServiceHealthy.WithLabelValues(service).Set(value)
}

// RecordHealthProbeCycle records the duration of one aggregation cycle.
func RecordHealthProbeCycle(d time.Duration) {
	HealthProbeDuration.Observe(d.Seconds())
}
