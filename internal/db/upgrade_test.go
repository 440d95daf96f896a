package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrate_UpgradePath_FirstReleaseSchema simulates a database created
// before attempt_count and provider existed. Existing runs must survive,
// gain the new columns with defaults, and have their attempt counts
// backfilled from the attempts table.
func TestMigrate_UpgradePath_FirstReleaseSchema(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)

	legacy := []string{
		`CREATE TABLE schedule_runs (
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
		`CREATE TABLE schedule_attempts (
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
		`INSERT INTO schedule_runs (id, request_hash, status, created_at) VALUES ('old', 'h1', 'succeeded', '2025-01-01T00:00:00Z')`,
		`INSERT INTO schedule_attempts (id, run_id, number, error_code, created_at) VALUES ('a1', 'old', 1, 'MISSING_TASKS', '2025-01-01T00:00:00Z')`,
		`INSERT INTO schedule_attempts (id, run_id, number, created_at) VALUES ('a2', 'old', 2, '2025-01-01T00:00:05Z')`,
		`INSERT INTO schedule_runs (id, request_hash, status, created_at) VALUES ('empty', 'h2', 'failed', '2025-01-02T00:00:00Z')`,
	}
	for _, stmt := range legacy {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	require.NoError(t, Migrate(db))

	var count int
	var provider string
	require.NoError(t, db.QueryRow(`SELECT attempt_count, provider FROM schedule_runs WHERE id = 'old'`).Scan(&count, &provider))
	assert.Equal(t, 2, count)
	assert.Equal(t, "", provider)

	require.NoError(t, db.QueryRow(`SELECT attempt_count FROM schedule_runs WHERE id = 'empty'`).Scan(&count))
	assert.Equal(t, 0, count)

	var idx string
	require.NoError(t, db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_attempts_run'`).Scan(&idx))

	// Re-running after the upgrade is a no-op.
	require.NoError(t, Migrate(db))
}
