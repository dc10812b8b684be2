package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"careerforge/internal/handler/http/requestid"
	"careerforge/internal/handler/http/respond"
)

// BreakerResetter clears the circuit breaker of one known service.
// It reports false when the service name is not registered.
type BreakerResetter interface {
	Reset(service string) bool
}

// ResetHandler handles operator-initiated breaker resets.
// A reset forces the breaker closed and clears its failure count; the next
// real call decides whether the service has actually recovered.
type ResetHandler struct {
	Resetter BreakerResetter
	Logger   *slog.Logger
}

// ServeHTTP resets the named service's breaker.
// Returns 404 for unknown services, 200 on success.
func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if !h.Resetter.Reset(name) {
		respond.Error(w, http.StatusNotFound, fmt.Errorf("unknown service: %s", name))
		return
	}

	h.logger().Info("breaker reset by operator",
		slog.String("request_id", requestid.FromContext(r.Context())),
		slog.String("service", name))

	respond.JSON(w, http.StatusOK, map[string]string{
		"service": name,
		"result":  "reset",
	})
}

func (h *ResetHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Remediator restarts one subsystem out of band. Implementations talk to
// whatever supervises the subsystem (container runtime, process manager);
// this package only routes the request.
type Remediator interface {
	Restart(ctx context.Context, service string) error
}

// RestartHandler handles operator-initiated subsystem restarts.
// Restart hooks are registered per service; a service without a hook
// cannot be restarted from here.
type RestartHandler struct {
	Remediators map[string]Remediator
	Logger      *slog.Logger
}

// ServeHTTP triggers the restart hook for the named service.
// Returns 404 when no hook is registered, 502 when the hook fails, and
// 202 Accepted when the restart has been handed off.
func (h *RestartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	rem, ok := h.Remediators[name]
	if !ok {
		respond.Error(w, http.StatusNotFound, fmt.Errorf("no restart hook for service: %s", name))
		return
	}

	reqID := requestid.FromContext(r.Context())

	if err := rem.Restart(r.Context(), name); err != nil {
		h.logger().Error("subsystem restart failed",
			slog.String("request_id", reqID),
			slog.String("service", name),
			slog.Any("error", err))
		respond.Error(w, http.StatusBadGateway, fmt.Errorf("restart failed: %w", err))
		return
	}

	h.logger().Info("subsystem restart triggered",
		slog.String("request_id", reqID),
		slog.String("service", name))

	respond.JSON(w, http.StatusAccepted, map[string]string{
		"service": name,
		"result":  "restart triggered",
	})
}

func (h *RestartHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
