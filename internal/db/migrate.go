package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillAttemptCount(db); err != nil {
		return fmt.Errorf("backfilling attempt counts: %w", err)
	}
	return nil
}

// migrateBackfillAttemptCount fills attempt_count for runs archived before
// the column was maintained on write.
func migrateBackfillAttemptCount(db *sql.DB) error {
	_, err := db.Exec(`UPDATE schedule_runs
		SET attempt_count = (SELECT COUNT(*) FROM schedule_attempts a WHERE a.run_id = schedule_runs.id)
		WHERE attempt_count = 0
		  AND EXISTS (SELECT 1 FROM schedule_attempts a WHERE a.run_id = schedule_runs.id)`)
	return err
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schedule_runs (
		id            TEXT PRIMARY KEY,
		request_hash  TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending'
		              CHECK(status IN ('pending','succeeded','failed')),
		error_code    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		story_count   INTEGER NOT NULL DEFAULT 0,
		total_minutes INTEGER NOT NULL DEFAULT 0,
		request_json  BLOB,
		schedule_json BLOB,
		created_at    TEXT NOT NULL,
		finished_at   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS schedule_attempts (
		id           TEXT PRIMARY KEY,
		run_id       TEXT NOT NULL REFERENCES schedule_runs(id) ON DELETE CASCADE,
		number       INTEGER NOT NULL CHECK(number >= 1),
		error_code   TEXT NOT NULL DEFAULT '',
		message      TEXT NOT NULL DEFAULT '',
		raw_response BLOB,
		latency_ms   INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		UNIQUE(run_id, number)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_created ON schedule_runs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_request_hash ON schedule_runs(request_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_run ON schedule_attempts(run_id)`,

	// Columns added after the first release.
	`ALTER TABLE schedule_runs ADD COLUMN attempt_count INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE schedule_runs ADD COLUMN provider TEXT NOT NULL DEFAULT ''`,
}
