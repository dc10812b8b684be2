// Package slo tracks service level objectives for the mediation layer.
// The gauges are updated from the periodic probe cycle so dashboards can
// alert on objective burn instead of raw probe noise.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the mediated subsystems.
const (
	// AvailabilitySLO defines the target fraction of probe cycles in which
	// every subsystem is healthy (99.9%)
	AvailabilitySLO = 99.9

	// SubsystemAvailabilitySLO defines the target fraction of subsystems
	// healthy at any point in time (99%)
	SubsystemAvailabilitySLO = 99.0

	// BreakerOpenRatioSLO defines the maximum acceptable fraction of
	// breakers open at once (5%)
	BreakerOpenRatioSLO = 0.05
)

var (
	// SLOSubsystemAvailability tracks the fraction of mediated subsystems
	// currently healthy (0-1), calculated as: healthy_services / total_services
	SLOSubsystemAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_subsystem_availability_ratio",
			Help: "Fraction of mediated subsystems currently healthy (0-1), target: 0.99",
		},
	)

	// SLOBreakerOpenRatio tracks the fraction of circuit breakers currently
	// open (0-1), calculated as: open_breakers / total_services
	SLOBreakerOpenRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_breaker_open_ratio",
			Help: "Fraction of circuit breakers currently open (0-1), target: <= 0.05",
		},
	)
)

// UpdateSubsystemAvailability updates the availability gauge from one probe
// cycle. A zero total leaves the gauge untouched.
func UpdateSubsystemAvailability(healthy, total int) {
	if total == 0 {
		return
	}
	SLOSubsystemAvailability.Set(float64(healthy) / float64(total))
}

// UpdateBreakerOpenRatio updates the open-breaker gauge from one probe
// cycle. A zero total leaves the gauge untouched.
func UpdateBreakerOpenRatio(open, total int) {
	if total == 0 {
		return
	}
	SLOBreakerOpenRatio.Set(float64(open) / float64(total))
}
