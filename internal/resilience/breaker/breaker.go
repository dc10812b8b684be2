// Package breaker provides the per-service circuit breaker table guarding
// calls to managed dependencies. It uses the github.com/sony/gobreaker
// library to prevent cascading failures.
package breaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the settings applied to every breaker in the table.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens a breaker.
	FailureThreshold uint32

	// Cooldown is how long a breaker stays open before admitting a single probe.
	Cooldown time.Duration

	// OnStateChange is called after every breaker state transition.
	// It must not call back into the Table.
	OnStateChange func(service string, from, to gobreaker.State)
}

// DefaultConfig returns the production configuration:
// open after 5 consecutive failures, probe after a 300 second cooldown.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         300 * time.Second,
	}
}

// Permit reports the outcome of an admitted call back to its breaker.
// Exactly one Permit call must be made per admitted operation. In the
// half-open state the permit is the single probe token: the breaker closes
// or reopens based on the outcome it reports.
type Permit func(success bool)

// Status is a point-in-time view of one service's breaker, exposed to the
// administrative status endpoint.
type Status struct {
	Service      string `json:"service"`
	State        string `json:"state"`
	FailureCount uint32 `json:"failure_count"`
}

// Table holds one circuit breaker per managed service. Breakers are created
// lazily on first use and share the table's configuration.
//
// All methods are safe for concurrent use. Each breaker serializes its own
// state transitions internally, so operations against unrelated services
// never contend on a common lock.
type Table struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker
}

// NewTable creates a breaker table with the given configuration.
// Zero values in cfg fall back to DefaultConfig.
func NewTable(cfg Config, logger *slog.Logger) *Table {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Table{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker),
	}
}

// Allow asks the service's breaker whether a call may proceed.
//
// When the call is admitted, Allow returns a Permit that must be invoked
// exactly once with the call's outcome. When the breaker is open, or a
// half-open probe is already in flight, Allow returns (nil, false) and the
// caller must fail fast without touching the dependency.
func (t *Table) Allow(service string) (Permit, bool) {
	done, err := t.breakerFor(service).Allow()
	if err != nil {
		// gobreaker.ErrOpenState, or ErrTooManyRequests while the single
		// half-open probe is unresolved. Both mean "do not call".
		return nil, false
	}
	return Permit(done), true
}

// State returns the current state of the service's breaker.
// A service with no recorded failures is closed.
func (t *Table) State(service string) gobreaker.State {
	t.mu.RLock()
	cb, ok := t.breakers[service]
	t.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// FailureCount returns the service's current consecutive failure count.
func (t *Table) FailureCount(service string) uint32 {
	t.mu.RLock()
	cb, ok := t.breakers[service]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return cb.Counts().ConsecutiveFailures
}

// Snapshot returns the status of every breaker the table has created.
func (t *Table) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make(map[string]Status, len(t.breakers))
	for name, cb := range t.breakers {
		snapshot[name] = Status{
			Service:      name,
			State:        cb.State().String(),
			FailureCount: cb.Counts().ConsecutiveFailures,
		}
	}
	return snapshot
}

// Reset force-closes the service's breaker and discards its failure history.
// Intended for operator use after confirmed remediation. Returns false when
// the table has never created a breaker for the service.
func (t *Table) Reset(service string) bool {
	t.mu.Lock()
	_, ok := t.breakers[service]
	if ok {
		// gobreaker has no force-close, so install a fresh breaker.
		t.breakers[service] = t.newBreaker(service)
	}
	t.mu.Unlock()

	if ok {
		t.logger.Info("circuit breaker reset", slog.String("service", service))
	}
	return ok
}

// breakerFor returns the service's breaker, creating it on first use.
func (t *Table) breakerFor(service string) *gobreaker.TwoStepCircuitBreaker {
	t.mu.RLock()
	cb, ok := t.breakers[service]
	t.mu.RUnlock()
	if ok {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok := t.breakers[service]; ok {
		return cb
	}
	cb = t.newBreaker(service)
	t.breakers[service] = cb
	return cb
}

func (t *Table) newBreaker(service string) *gobreaker.TwoStepCircuitBreaker {
	threshold := t.cfg.FailureThreshold

	settings := gobreaker.Settings{
		Name: service,
		// Exactly one probe is admitted per half-open window; its outcome
		// alone decides whether the breaker closes or reopens.
		MaxRequests: 1,
		// Interval 0: closed-state counts are never cleared by time, only by
		// a success or a state transition.
		Interval: 0,
		Timeout:  t.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.logger.Warn("circuit breaker state changed",
				slog.String("service", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if t.cfg.OnStateChange != nil {
				t.cfg.OnStateChange(name, from, to)
			}
		},
	}

	return gobreaker.NewTwoStepCircuitBreaker(settings)
}
