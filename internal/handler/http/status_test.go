package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerforge/internal/resilience/health"
)

type stubAggregator struct {
	report health.Report
}

func (s *stubAggregator) Aggregate(ctx context.Context) health.Report {
	return s.report
}

func sampleReport(overall bool) health.Report {
	return health.Report{
		OverallHealthy: overall,
		CheckedAt:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Services: map[string]health.ServiceStatus{
			"matcher": {
				ServiceHealth: health.ServiceHealth{Service: "matcher", Healthy: overall},
				BreakerState:  "closed",
			},
			"cache": {
				ServiceHealth: health.ServiceHealth{Service: "cache", Healthy: true},
				BreakerState:  "closed",
			},
		},
	}
}

func TestStatusHandler_AllHealthy(t *testing.T) {
	h := &StatusHandler{Aggregator: &stubAggregator{report: sampleReport(true)}}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.OverallHealthy)
	assert.Len(t, report.Services, 2)
	assert.Equal(t, "closed", report.Services["matcher"].BreakerState)
}

func TestStatusHandler_Unhealthy(t *testing.T) {
	h := &StatusHandler{Aggregator: &stubAggregator{report: sampleReport(false)}}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.OverallHealthy)
	assert.Len(t, report.Services, 2, "degraded response still carries the full document")
}
