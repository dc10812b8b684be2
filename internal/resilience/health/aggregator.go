package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"careerforge/internal/resilience/breaker"
)

// Dependency is a managed subsystem that can report its own liveness.
// HealthCheck must be side-effect free and bound its latency by honoring ctx.
type Dependency interface {
	// Name returns the stable service name the dependency is managed under.
	Name() string

	// HealthCheck returns nil when the dependency considers itself healthy.
	HealthCheck(ctx context.Context) error
}

// ServiceStatus combines a service's health record with its breaker state
// for the aggregated status document.
type ServiceStatus struct {
	ServiceHealth
	BreakerState string `json:"breaker_state"`
	FailureCount uint32 `json:"failure_count"`
}

// Report is the aggregated status of every managed service.
type Report struct {
	OverallHealthy bool                     `json:"overall_healthy"`
	CheckedAt      time.Time                `json:"checked_at"`
	Services       map[string]ServiceStatus `json:"services"`
}

// Aggregator polls each dependency's own health check and folds the results
// together with the breaker table into a single status document.
//
// Probes are diagnostic only: a failing HealthCheck marks the service
// unhealthy in the registry but never touches its circuit breaker. Only
// real operation failures trip breakers.
type Aggregator struct {
	registry     *Registry
	breakers     *breaker.Table
	logger       *slog.Logger
	probeTimeout time.Duration

	mu   sync.RWMutex
	deps map[string]Dependency
}

// NewAggregator creates an aggregator over the shared registry and breaker
// table. Dependencies are added with AddDependency before the first probe
// cycle.
func NewAggregator(registry *Registry, breakers *breaker.Table, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		registry:     registry,
		breakers:     breakers,
		logger:       logger,
		probeTimeout: 5 * time.Second,
		deps:         make(map[string]Dependency),
	}
}

// SetProbeTimeout overrides the per-dependency probe timeout.
func (a *Aggregator) SetProbeTimeout(d time.Duration) {
	if d > 0 {
		a.probeTimeout = d
	}
}

// AddDependency registers a dependency for probing. Its service name is
// registered in the health registry so the aggregate always covers it.
func (a *Aggregator) AddDependency(dep Dependency) {
	a.registry.Register(dep.Name())
	a.mu.Lock()
	a.deps[dep.Name()] = dep
	a.mu.Unlock()
}

// Aggregate probes every registered dependency concurrently, records the
// results in the registry, and returns the combined status document.
// OverallHealthy is the logical AND across all known services.
func (a *Aggregator) Aggregate(ctx context.Context) Report {
	a.mu.RLock()
	deps := make([]Dependency, 0, len(a.deps))
	for _, dep := range a.deps {
		deps = append(deps, dep)
	}
	a.mu.RUnlock()

	var g errgroup.Group
	for _, dep := range deps {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, a.probeTimeout)
			defer cancel()

			if err := a.probe(probeCtx, dep); err != nil {
				a.registry.MarkUnhealthy(dep.Name(), err)
				a.logger.Warn("health probe failed",
					slog.String("service", dep.Name()),
					slog.Any("error", err))
			} else {
				a.registry.MarkHealthy(dep.Name())
			}
			return nil
		})
	}
	// Probe closures always return nil; Wait is a join point.
	_ = g.Wait()

	healthSnapshot := a.registry.Snapshot()
	breakerSnapshot := a.breakers.Snapshot()

	report := Report{
		OverallHealthy: true,
		CheckedAt:      a.registry.clock.Now(),
		Services:       make(map[string]ServiceStatus, len(healthSnapshot)),
	}
	for name, hs := range healthSnapshot {
		status := ServiceStatus{
			ServiceHealth: hs,
			// No breaker entry means no failure was ever recorded.
			BreakerState: "closed",
		}
		if bs, ok := breakerSnapshot[name]; ok {
			status.BreakerState = bs.State
			status.FailureCount = bs.FailureCount
		}
		report.Services[name] = status
		if !hs.Healthy {
			report.OverallHealthy = false
		}
	}
	return report
}

// Reset force-closes the service's breaker for operator use after confirmed
// remediation. Returns false for services the registry does not know.
func (a *Aggregator) Reset(service string) bool {
	if !a.registry.Known(service) {
		return false
	}
	a.breakers.Reset(service)
	return true
}

// probe runs one dependency's health check, converting a panic into an
// error so a misbehaving check only marks its own service unhealthy.
func (a *Aggregator) probe(ctx context.Context, dep Dependency) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &probePanicError{value: rec}
		}
	}()
	return dep.HealthCheck(ctx)
}

type probePanicError struct {
	value any
}

func (e *probePanicError) Error() string {
	return fmt.Sprintf("health check panicked: %v", e.value)
}
