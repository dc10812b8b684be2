package http

import (
	"context"
	"net/http"

	"careerforge/internal/handler/http/respond"
	"careerforge/internal/resilience/health"
)

// StatusAggregator produces the combined health document served by GET /status.
type StatusAggregator interface {
	Aggregate(ctx context.Context) health.Report
}

// StatusHandler serves the aggregated health of every mediated subsystem.
// The response is always a full document; overall health only decides the
// status code so dashboards and load balancers can share the endpoint.
type StatusHandler struct {
	Aggregator StatusAggregator
}

// ServeHTTP runs a fresh probe cycle and writes the status document.
// Returns 200 OK when every subsystem is healthy, 503 otherwise.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Aggregator.Aggregate(r.Context())

	code := http.StatusOK
	if !report.OverallHealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, report)
}
