package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerforge/internal/resilience/breaker"
	"careerforge/internal/resilience/fallback"
	"careerforge/internal/resilience/health"
	"careerforge/internal/resilience/report"
)

type capturingSink struct {
	mu      sync.Mutex
	records []report.Record
}

func (s *capturingSink) Record(ctx context.Context, rec report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *capturingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fixture struct {
	executor *Executor
	breakers *breaker.Table
	registry *health.Registry
	catalog  *fallback.Catalog
	reporter *report.Reporter
	sink     *capturingSink
}

func newFixture(t *testing.T, threshold uint32, cooldown time.Duration) *fixture {
	t.Helper()
	sink := &capturingSink{}
	reporter := report.New(sink, nil, nil)
	breakers := breaker.NewTable(breaker.Config{FailureThreshold: threshold, Cooldown: cooldown}, nil)
	registry := health.NewRegistry()
	catalog := fallback.NewCatalog()
	return &fixture{
		executor: New(breakers, registry, catalog, reporter, nil),
		breakers: breakers,
		registry: registry,
		catalog:  catalog,
		reporter: reporter,
		sink:     sink,
	}
}

func failingOp(err error) Operation {
	return func(ctx context.Context) (any, error) { return nil, err }
}

func succeedingOp(value any) Operation {
	return func(ctx context.Context) (any, error) { return value, nil }
}

func TestExecute_Success(t *testing.T) {
	f := newFixture(t, 5, time.Minute)

	result := f.executor.Execute(context.Background(), "matcher", "find_matches",
		succeedingOp("three matches"), nil)

	assert.True(t, result.Succeeded)
	assert.Equal(t, "three matches", result.Value)
	assert.Empty(t, result.ErrorID)
	assert.False(t, result.FallbackUsed)
	assert.GreaterOrEqual(t, result.Latency, time.Duration(0))

	entry := f.registry.Snapshot()["matcher"]
	assert.True(t, entry.Healthy)
}

func TestExecute_FailureWithoutFallback(t *testing.T) {
	f := newFixture(t, 5, time.Minute)

	result := f.executor.Execute(context.Background(), "scorer", "score_feedback",
		failingOp(errors.New("model unavailable")), nil)
	f.reporter.Flush()

	assert.False(t, result.Succeeded)
	assert.False(t, result.FallbackUsed)
	assert.Nil(t, result.Value)
	assert.NotEmpty(t, result.ErrorID)

	entry := f.registry.Snapshot()["scorer"]
	assert.False(t, entry.Healthy)
	assert.Equal(t, 1, entry.ConsecutiveErrors)
	assert.Equal(t, uint32(1), f.breakers.FailureCount("scorer"))

	require.Equal(t, 1, f.sink.count())
	assert.Equal(t, result.ErrorID, f.sink.records[0].ErrorID)
}

func TestExecute_FailureWithFallback(t *testing.T) {
	f := newFixture(t, 5, time.Minute)
	f.catalog.RegisterStatic("matcher", "find_matches", map[string]any{"matches": []string{}})

	result := f.executor.Execute(context.Background(), "matcher", "find_matches",
		failingOp(errors.New("down")), nil)
	f.reporter.Flush()

	assert.False(t, result.Succeeded)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, map[string]any{"matches": []string{}}, result.Value)
	assert.NotEmpty(t, result.ErrorID)
}

func TestExecute_NeverPanics(t *testing.T) {
	f := newFixture(t, 5, time.Minute)

	var result Result
	assert.NotPanics(t, func() {
		result = f.executor.Execute(context.Background(), "versioning", "save_revision",
			func(ctx context.Context) (any, error) { panic("corrupted index") }, nil)
	})
	f.reporter.Flush()

	assert.False(t, result.Succeeded)
	assert.NotEmpty(t, result.ErrorID)
	require.Equal(t, 1, f.sink.count())
	assert.Contains(t, f.sink.records[0].Message, "corrupted index")
}

func TestExecute_OpenBreakerFailsFast(t *testing.T) {
	f := newFixture(t, 2, time.Minute)
	f.catalog.RegisterStatic("matcher", "find_matches", "degraded")

	for i := 0; i < 2; i++ {
		f.executor.Execute(context.Background(), "matcher", "find_matches",
			failingOp(errors.New("down")), nil)
	}
	require.Equal(t, gobreaker.StateOpen, f.breakers.State("matcher"))

	invoked := false
	result := f.executor.Execute(context.Background(), "matcher", "find_matches",
		func(ctx context.Context) (any, error) {
			invoked = true
			return "real", nil
		}, nil)
	f.reporter.Flush()

	assert.False(t, invoked, "callable must not run while the breaker is open")
	assert.False(t, result.Succeeded)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "degraded", result.Value)
	// Nothing was invoked, so no dependency error was reported.
	assert.Empty(t, result.ErrorID)
	assert.Equal(t, 2, f.sink.count())
}

func TestExecute_OpenBreakerWithoutFallback(t *testing.T) {
	f := newFixture(t, 1, time.Minute)

	f.executor.Execute(context.Background(), "cache", "lookup",
		failingOp(errors.New("down")), nil)

	result := f.executor.Execute(context.Background(), "cache", "lookup",
		succeedingOp("hit"), nil)
	f.reporter.Flush()

	assert.False(t, result.Succeeded)
	assert.False(t, result.FallbackUsed)
	assert.Nil(t, result.Value)
	assert.Empty(t, result.ErrorID)
}

// Scenario: T=2, short cooldown. Two failures open the breaker; a call
// inside the cooldown returns the fallback without invoking the callable; a
// call after the cooldown is admitted as the half-open probe; a successful
// probe closes the breaker for subsequent calls.
func TestExecute_BreakerLifecycle(t *testing.T) {
	const cooldown = 80 * time.Millisecond
	f := newFixture(t, 2, cooldown)
	f.catalog.RegisterStatic("matcher", "find_matches", "degraded")

	for i := 0; i < 2; i++ {
		f.executor.Execute(context.Background(), "matcher", "find_matches",
			failingOp(errors.New("down")), nil)
	}

	// Inside the cooldown window: fail fast with the fallback.
	invoked := false
	mid := f.executor.Execute(context.Background(), "matcher", "find_matches",
		func(ctx context.Context) (any, error) {
			invoked = true
			return nil, errors.New("down")
		}, nil)
	assert.False(t, invoked)
	assert.True(t, mid.FallbackUsed)
	assert.Equal(t, "degraded", mid.Value)

	time.Sleep(cooldown + 20*time.Millisecond)

	// After the cooldown: the next call is the probe and runs for real.
	probe := f.executor.Execute(context.Background(), "matcher", "find_matches",
		succeedingOp("recovered"), nil)
	assert.True(t, probe.Succeeded)
	assert.Equal(t, "recovered", probe.Value)

	assert.Equal(t, gobreaker.StateClosed, f.breakers.State("matcher"))
	assert.Equal(t, uint32(0), f.breakers.FailureCount("matcher"))

	after := f.executor.Execute(context.Background(), "matcher", "find_matches",
		succeedingOp("normal"), nil)
	assert.True(t, after.Succeeded)
	f.reporter.Flush()
}

// Scenario: a failed probe reopens the breaker with a fresh cooldown.
func TestExecute_FailedProbeReopens(t *testing.T) {
	const cooldown = 80 * time.Millisecond
	f := newFixture(t, 1, cooldown)

	f.executor.Execute(context.Background(), "rewriter", "rewrite_section",
		failingOp(errors.New("down")), nil)

	time.Sleep(cooldown + 20*time.Millisecond)

	probe := f.executor.Execute(context.Background(), "rewriter", "rewrite_section",
		failingOp(errors.New("still down")), nil)
	assert.False(t, probe.Succeeded)
	assert.Equal(t, gobreaker.StateOpen, f.breakers.State("rewriter"))

	// Immediately after the failed probe the breaker is open again.
	invoked := false
	f.executor.Execute(context.Background(), "rewriter", "rewrite_section",
		func(ctx context.Context) (any, error) {
			invoked = true
			return nil, nil
		}, nil)
	assert.False(t, invoked)
	f.reporter.Flush()
}

func TestExecute_FallbackGeneratorSeesMetadata(t *testing.T) {
	f := newFixture(t, 5, time.Minute)
	f.catalog.Register("rewriter", "rewrite_section", func(meta map[string]any) any {
		return meta["original_text"]
	})

	result := f.executor.Execute(context.Background(), "rewriter", "rewrite_section",
		failingOp(errors.New("down")),
		map[string]any{"original_text": "as written"})
	f.reporter.Flush()

	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "as written", result.Value)
}

func TestExecute_FailingAuditSinkDoesNotChangeOutcome(t *testing.T) {
	broken := report.New(brokenSink{}, nil, nil)
	breakers := breaker.NewTable(breaker.Config{FailureThreshold: 5, Cooldown: time.Minute}, nil)
	catalog := fallback.NewCatalog()
	catalog.RegisterStatic("cache", "lookup", "degraded")
	e := New(breakers, health.NewRegistry(), catalog, broken, nil)

	result := e.Execute(context.Background(), "cache", "lookup",
		failingOp(errors.New("down")), nil)
	broken.Flush()

	f := newFixture(t, 5, time.Minute)
	f.catalog.RegisterStatic("cache", "lookup", "degraded")
	baseline := f.executor.Execute(context.Background(), "cache", "lookup",
		failingOp(errors.New("down")), nil)
	f.reporter.Flush()

	assert.Equal(t, baseline.Succeeded, result.Succeeded)
	assert.Equal(t, baseline.FallbackUsed, result.FallbackUsed)
	assert.Equal(t, baseline.Value, result.Value)
}

type brokenSink struct{}

func (brokenSink) Record(ctx context.Context, rec report.Record) error {
	return errors.New("audit unavailable")
}

func TestExecute_ConcurrentCallsSameService(t *testing.T) {
	f := newFixture(t, 100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.executor.Execute(context.Background(), "conversation", "append_turn",
				succeedingOp("ok"), nil)
		}()
	}
	wg.Wait()

	entry := f.registry.Snapshot()["conversation"]
	assert.True(t, entry.Healthy)
	assert.Equal(t, uint32(0), f.breakers.FailureCount("conversation"))
}
