package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerforge/internal/resilience/breaker"
	"careerforge/internal/resilience/report"
)

type memorySink struct {
	mu      sync.Mutex
	records []report.Record
}

func (s *memorySink) Record(ctx context.Context, rec report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

type staticDep struct {
	name string
	err  error
}

func (d *staticDep) Name() string                          { return d.name }
func (d *staticDep) HealthCheck(ctx context.Context) error { return d.err }

// End-to-end: two failures open the matcher breaker, the status document
// reflects it, an operator reset closes it again, and the audit sink saw
// every dependency error.
func TestCore_FailureIsolationLifecycle(t *testing.T) {
	sink := &memorySink{}
	core := NewCore(Options{
		Breaker:  breaker.Config{FailureThreshold: 2, Cooldown: time.Hour},
		Services: []string{"conversation", "matcher"},
		Audit:    sink,
	}, nil)
	defer core.Close()

	core.Aggregator.AddDependency(&staticDep{name: "conversation"})
	core.Aggregator.AddDependency(&staticDep{name: "matcher"})
	core.Fallbacks.RegisterStatic("matcher", "find_matches", map[string]any{"matches": []string{}})

	for i := 0; i < 2; i++ {
		result := core.Executor.Execute(context.Background(), "matcher", "find_matches",
			func(ctx context.Context) (any, error) { return nil, errors.New("grpc: unavailable") }, nil)
		assert.False(t, result.Succeeded)
		assert.True(t, result.FallbackUsed)
	}

	// The breaker is open: the next call fails fast with the fallback.
	rejected := core.Executor.Execute(context.Background(), "matcher", "find_matches",
		func(ctx context.Context) (any, error) { t.Fatal("must not be invoked"); return nil, nil }, nil)
	assert.False(t, rejected.Succeeded)
	assert.True(t, rejected.FallbackUsed)
	assert.Empty(t, rejected.ErrorID)

	status := core.Aggregator.Aggregate(context.Background())
	assert.False(t, status.OverallHealthy)
	matcher := status.Services["matcher"]
	assert.Equal(t, "open", matcher.BreakerState)
	// A passing probe reports the dependency itself healthy even while the
	// breaker holds operations back.
	assert.True(t, matcher.Healthy)
	assert.True(t, status.Services["conversation"].Healthy)

	require.True(t, core.Aggregator.Reset("matcher"))
	recovered := core.Executor.Execute(context.Background(), "matcher", "find_matches",
		func(ctx context.Context) (any, error) { return "match-1", nil }, nil)
	assert.True(t, recovered.Succeeded)

	core.Reporter.Flush()
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.records, 2, "only invoked failures are audited")
}

func TestCore_ProbeCycleUpdatesAggregateOnly(t *testing.T) {
	core := NewCore(Options{
		Breaker:  breaker.Config{FailureThreshold: 5, Cooldown: time.Hour},
		Services: []string{"cache"},
	}, nil)
	defer core.Close()

	dep := &staticDep{name: "cache", err: errors.New("evicting")}
	core.Aggregator.AddDependency(dep)

	status := core.Aggregator.Aggregate(context.Background())
	assert.False(t, status.OverallHealthy)
	assert.Equal(t, "closed", status.Services["cache"].BreakerState,
		"a failing probe must not trip the breaker")

	// The next real operation is still attempted.
	result := core.Executor.Execute(context.Background(), "cache", "lookup",
		func(ctx context.Context) (any, error) { return "hit", nil }, nil)
	assert.True(t, result.Succeeded)

	dep.err = nil
	status = core.Aggregator.Aggregate(context.Background())
	assert.True(t, status.OverallHealthy)
}

// The aggregate stays unhealthy after one aggregation cycle when the
// registry was updated by an operation failure, matching what operators see
// between probe cycles.
func TestCore_OperationFailureShowsInAggregate(t *testing.T) {
	core := NewCore(Options{
		Breaker:  breaker.Config{FailureThreshold: 5, Cooldown: time.Hour},
		Services: []string{"scorer", "versioning"},
	}, nil)
	defer core.Close()

	core.Executor.Execute(context.Background(), "scorer", "score_feedback",
		func(ctx context.Context) (any, error) { return nil, errors.New("boom") }, nil)

	snapshot := core.Health.Snapshot()
	assert.False(t, snapshot["scorer"].Healthy)
	assert.True(t, snapshot["versioning"].Healthy)
	core.Reporter.Flush()
}
