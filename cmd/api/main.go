package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"careerforge/internal/config"
	hhttp "careerforge/internal/handler/http"
	"careerforge/internal/infra/audit"
	"careerforge/internal/infra/db"
	"careerforge/internal/infra/notifier"
	"careerforge/internal/infra/probe"
	"careerforge/internal/observability/logging"
	"careerforge/internal/observability/metrics"
	"careerforge/internal/observability/slo"
	"careerforge/internal/resilience"
	"careerforge/internal/resilience/breaker"
	"careerforge/internal/resilience/report"
)

func main() {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	database := initDatabase(logger, cfg)
	if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close audit store", slog.Any("error", err))
			}
		}()
	}

	core := buildCore(logger, cfg, database)
	defer core.Close()

	registerProbers(logger, cfg, core)
	loadFallbacks(logger, cfg, core)

	scheduler := startProbeCycle(logger, cfg, core)
	defer scheduler.Stop()

	handler := hhttp.NewRouter(hhttp.RouterDeps{
		Aggregator:         core.Aggregator,
		Resetter:           core.Aggregator,
		Remediators:        map[string]hhttp.Remediator{},
		DB:                 database,
		Logger:             logger,
		AdminRatePerSecond: cfg.Server.AdminRatePerSecond,
		AdminBurst:         cfg.Server.AdminBurst,
	})

	runServer(logger, cfg, handler)
}

// initLogger initializes the process-wide structured logger.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the audit store and runs migrations when DATABASE_URL
// is set. Without a DSN the process runs with log-only auditing.
func initDatabase(logger *slog.Logger, cfg *config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, error records go to the structured log only")
		return nil
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit store", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate audit store", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// buildCore wires the resilience object graph from configuration.
// A process restart starts from a clean slate: breakers closed, counts
// zero, all services presumed healthy until calls say otherwise.
func buildCore(logger *slog.Logger, cfg *config.Config, database *sql.DB) *resilience.Core {
	var auditSink report.AuditSink
	if database != nil {
		auditSink = audit.NewPostgresSink(database)
	} else {
		auditSink = audit.NewLogSink(logger)
	}

	var sessionNotifier report.Notifier
	if cfg.Notifier.Enabled {
		sessionNotifier = notifier.NewWebhookNotifier(notifier.WebhookConfig{
			Enabled:    true,
			WebhookURL: cfg.Notifier.WebhookURL,
			Timeout:    cfg.Notifier.Timeout,
		})
		logger.Info("session notifications enabled")
	} else {
		sessionNotifier = notifier.NewNoOpNotifier()
		logger.Info("session notifications disabled")
	}

	core := resilience.NewCore(resilience.Options{
		Breaker: breaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
		},
		Services: cfg.Services,
		Audit:    auditSink,
		Notifier: sessionNotifier,
	}, logger)

	logger.Info("resilience core initialized",
		slog.Any("services", cfg.Services),
		slog.Uint64("failure_threshold", uint64(cfg.Breaker.FailureThreshold)),
		slog.Duration("cooldown", cfg.Breaker.Cooldown))

	return core
}

// registerProbers attaches one health prober per configured service.
// Services with a configured health endpoint get an HTTP probe; the rest
// get a static probe so the aggregate still covers them.
func registerProbers(logger *slog.Logger, cfg *config.Config, core *resilience.Core) {
	core.Aggregator.SetProbeTimeout(cfg.Probe.Timeout)

	for _, service := range cfg.Services {
		if url, ok := cfg.Probe.URLs[service]; ok {
			core.Aggregator.AddDependency(probe.NewHTTPProber(service, url, cfg.Probe.Timeout))
			logger.Info("registered http health probe",
				slog.String("service", service),
				slog.String("url", url))
		} else {
			core.Aggregator.AddDependency(probe.NewStaticProber(service))
			logger.Debug("registered static health probe", slog.String("service", service))
		}
	}
}

// loadFallbacks loads the optional static fallback catalog.
func loadFallbacks(logger *slog.Logger, cfg *config.Config, core *resilience.Core) {
	if cfg.FallbackFile == "" {
		return
	}
	if err := core.Fallbacks.LoadFile(cfg.FallbackFile); err != nil {
		logger.Error("failed to load fallback catalog",
			slog.String("path", cfg.FallbackFile),
			slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("fallback catalog loaded",
		slog.String("path", cfg.FallbackFile),
		slog.Int("entries", core.Fallbacks.Len()))
}

// startProbeCycle schedules the periodic health check cycle. Each cycle
// probes every subsystem, refreshes the health and SLO gauges, and logs
// a summary when anything is degraded.
func startProbeCycle(logger *slog.Logger, cfg *config.Config, core *resilience.Core) *cron.Cron {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(cfg.Probe.Schedule, func() {
		start := time.Now()
		doc := core.Aggregator.Aggregate(context.Background())
		metrics.RecordHealthProbeCycle(time.Since(start))

		healthy := 0
		open := 0
		for name, svc := range doc.Services {
			metrics.SetServiceHealthy(name, svc.Healthy)
			metrics.SetBreakerState(name, svc.BreakerState)
			if svc.Healthy {
				healthy++
			}
			if svc.BreakerState == "open" {
				open++
			}
		}
		slo.UpdateSubsystemAvailability(healthy, len(doc.Services))
		slo.UpdateBreakerOpenRatio(open, len(doc.Services))

		if !doc.OverallHealthy {
			logger.Warn("probe cycle found degraded subsystems",
				slog.Int("healthy", healthy),
				slog.Int("total", len(doc.Services)),
				slog.Int("breakers_open", open))
		}
	})
	if err != nil {
		logger.Error("invalid probe schedule",
			slog.String("schedule", cfg.Probe.Schedule),
			slog.Any("error", err))
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("probe cycle scheduled", slog.String("schedule", cfg.Probe.Schedule))
	return scheduler
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, cfg *config.Config, handler http.Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
