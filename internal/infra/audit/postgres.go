// Package audit provides implementations of the error-record audit sink.
// The audit store is the system of record for dependency failures; the
// resilience core forwards records here and keeps nothing locally.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"careerforge/internal/resilience/report"
)

// PostgresSink persists error records to the error_records table.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a sink over an open database handle.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Record inserts one error record. The record's context map is stored as
// JSONB for ad-hoc operator queries.
func (s *PostgresSink) Record(ctx context.Context, rec report.Record) error {
	payload, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("Record: marshal context: %w", err)
	}

	const query = `
INSERT INTO error_records (error_id, service, operation, kind, message, context, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ErrorID, rec.Service, rec.Operation, rec.Kind, rec.Message, payload, rec.OccurredAt); err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}
