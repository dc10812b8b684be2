package audit

import (
	"context"
	"log/slog"

	"careerforge/internal/resilience/report"
)

// LogSink writes error records to the structured log. It is used when no
// database is configured so deployments without Postgres still retain an
// inspectable failure trail.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, rec report.Record) error {
	s.logger.LogAttrs(ctx, slog.LevelError, "dependency failure recorded",
		slog.String("error_id", rec.ErrorID),
		slog.String("service", rec.Service),
		slog.String("operation", rec.Operation),
		slog.String("kind", rec.Kind),
		slog.String("message", rec.Message),
		slog.Time("occurred_at", rec.OccurredAt),
	)
	return nil
}
