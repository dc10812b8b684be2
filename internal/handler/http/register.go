package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"careerforge/internal/handler/http/requestid"
	"careerforge/internal/observability/tracing"
)

// RouterDeps carries everything the HTTP surface needs. All fields except
// Logger are required; a nil Remediators map simply means no service can be
// restarted from the admin API.
type RouterDeps struct {
	Aggregator  StatusAggregator
	Resetter    BreakerResetter
	Remediators map[string]Remediator

	// DB is the audit store handle, used only by the readiness probe.
	// May be nil when auditing goes to the log.
	DB *sql.DB

	Logger *slog.Logger

	AdminRatePerSecond float64
	AdminBurst         int
}

const adminMaxBodyBytes = 4 << 10

// NewRouter builds the full HTTP handler: status and admin routes, process
// probes, and the metrics endpoint, wrapped in the shared middleware stack.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.Handle("GET /status", &StatusHandler{Aggregator: deps.Aggregator})

	adminLimit := AdminRateLimit(deps.AdminRatePerSecond, deps.AdminBurst)
	limitBody := LimitRequestBody(adminMaxBodyBytes)

	mux.Handle("POST /services/{name}/reset",
		adminLimit(limitBody(&ResetHandler{Resetter: deps.Resetter, Logger: logger})))
	mux.Handle("POST /services/{name}/restart",
		adminLimit(limitBody(&RestartHandler{Remediators: deps.Remediators, Logger: logger})))

	mux.Handle("GET /healthz", &LiveHandler{})
	mux.Handle("GET /readyz", &ReadyHandler{DB: deps.DB})
	mux.Handle("GET /metrics", MetricsHandler())

	var handler http.Handler = mux
	handler = MetricsMiddleware(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	handler = tracing.Middleware(handler)
	handler = requestid.Middleware(handler)

	return handler
}
