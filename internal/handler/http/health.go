// Package http provides the HTTP surface of the resilience mediator: the
// aggregated status document, admin endpoints for operator intervention,
// process health probes, and the middleware stack shared by all routes.
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// LiveHandler handles Kubernetes liveness probe requests.
// It performs a lightweight check to verify the process is responsive.
type LiveHandler struct{}

// ServeHTTP always returns 200 OK if the process can respond at all.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		slog.Debug("alive: failed to write response", slog.Any("error", err))
	}
}

// ReadyHandler handles Kubernetes readiness probe requests.
// When an audit database is configured it must be reachable before the
// process accepts traffic; without one the process is ready immediately.
type ReadyHandler struct {
	DB *sql.DB
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.DB.PingContext(ctx); err != nil {
			http.Error(w, "audit store not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		slog.Debug("ready: failed to write response", slog.Any("error", err))
	}
}
