package db

import (
	"database/sql"
)

// MigrateUp creates the audit schema if it does not exist.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS error_records (
    id          SERIAL PRIMARY KEY,
    error_id    TEXT NOT NULL UNIQUE,
    service     TEXT NOT NULL,
    operation   TEXT NOT NULL,
    kind        TEXT NOT NULL,
    message     TEXT NOT NULL,
    context     JSONB,
    occurred_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Operator queries slice by service and recency.
		`CREATE INDEX IF NOT EXISTS idx_error_records_service_occurred ON error_records(service, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_error_records_kind ON error_records(kind)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
