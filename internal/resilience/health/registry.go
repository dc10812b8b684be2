// Package health tracks per-dependency liveness and aggregates it with
// circuit breaker state into the status document served to probes and
// operators.
package health

import (
	"sync"
	"time"
)

// Clock provides time abstraction for testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (*SystemClock) Now() time.Time {
	return time.Now()
}

// ServiceHealth is the liveness record kept for one managed dependency.
// Records are created at startup for each known service and never deleted.
type ServiceHealth struct {
	Service           string    `json:"service"`
	Healthy           bool      `json:"healthy"`
	LastChecked       time.Time `json:"last_checked"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastError         string    `json:"last_error,omitempty"`
}

// Registry tracks the self-reported health of every managed dependency.
// It is updated after every executed operation and by scheduled probes.
//
// Entries exist only for explicitly registered services or services that
// performed a real operation; probes never create entries, which bounds
// growth from misspelled names.
type Registry struct {
	clock Clock

	mu      sync.RWMutex
	entries map[string]*ServiceHealth
}

// NewRegistry creates a registry with an entry for each known service.
// Services start healthy; the first probe cycle or operation corrects that
// if needed.
func NewRegistry(services ...string) *Registry {
	return NewRegistryWithClock(&SystemClock{}, services...)
}

// NewRegistryWithClock is NewRegistry with an injectable clock for tests.
func NewRegistryWithClock(clock Clock, services ...string) *Registry {
	r := &Registry{
		clock:   clock,
		entries: make(map[string]*ServiceHealth, len(services)),
	}
	for _, svc := range services {
		r.Register(svc)
	}
	return r
}

// Register creates a healthy entry for the service if one does not exist.
func (r *Registry) Register(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[service]; ok {
		return
	}
	r.entries[service] = &ServiceHealth{
		Service:     service,
		Healthy:     true,
		LastChecked: r.clock.Now(),
	}
}

// Known reports whether the service has a registry entry.
func (r *Registry) Known(service string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[service]
	return ok
}

// MarkHealthy records a successful outcome for the service, clearing its
// error streak. The entry is created if the service is new: a completed
// operation is proof the name is real.
func (r *Registry) MarkHealthy(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.entry(service)
	entry.Healthy = true
	entry.ConsecutiveErrors = 0
	entry.LastError = ""
	entry.LastChecked = r.clock.Now()
}

// MarkUnhealthy records a failed outcome for the service.
func (r *Registry) MarkUnhealthy(service string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.entry(service)
	entry.Healthy = false
	entry.ConsecutiveErrors++
	if err != nil {
		entry.LastError = err.Error()
	}
	entry.LastChecked = r.clock.Now()
}

// Snapshot returns a copy of every health record.
func (r *Registry) Snapshot() map[string]ServiceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]ServiceHealth, len(r.entries))
	for name, entry := range r.entries {
		snapshot[name] = *entry
	}
	return snapshot
}

// entry returns the service's record, creating it if missing.
// Callers must hold r.mu.
func (r *Registry) entry(service string) *ServiceHealth {
	if e, ok := r.entries[service]; ok {
		return e
	}
	e := &ServiceHealth{Service: service}
	r.entries[service] = e
	return e
}
