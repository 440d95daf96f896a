package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/timeboxer/internal/db"
	"github.com/alexanderramin/timeboxer/internal/domain"
)

// SQLiteScheduleRunRepo implements ScheduleRunRepo. Request, schedule and
// raw generator payloads are stored zstd-compressed.
type SQLiteScheduleRunRepo struct {
	db db.DBTX
}

// NewSQLiteScheduleRunRepo creates a repo over a *sql.DB or a transaction.
func NewSQLiteScheduleRunRepo(conn db.DBTX) *SQLiteScheduleRunRepo {
	return &SQLiteScheduleRunRepo{db: conn}
}

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, request_hash, status, error_code, error_message, story_count,
	total_minutes, attempt_count, provider, request_json, schedule_json, created_at, finished_at`

func (r *SQLiteScheduleRunRepo) Create(ctx context.Context, run *domain.ScheduleRun) error {
	reqBlob, err := compress(run.RequestJSON)
	if err != nil {
		return err
	}
	schedBlob, err := compress(run.ScheduleJSON)
	if err != nil {
		return err
	}
	query := `INSERT INTO schedule_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.RequestHash,
		string(run.Status),
		run.ErrorCode,
		run.ErrorMessage,
		run.StoryCount,
		run.TotalMinutes,
		run.AttemptCount,
		run.Provider,
		reqBlob,
		schedBlob,
		run.CreatedAt.UTC().Format(timeLayout),
		nullableTimeToString(run.FinishedAt, timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting schedule run: %w", err)
	}
	return nil
}

// Finish records the outcome fields of a run: status, error, attempt
// count, schedule and finish time.
func (r *SQLiteScheduleRunRepo) Finish(ctx context.Context, run *domain.ScheduleRun) error {
	schedBlob, err := compress(run.ScheduleJSON)
	if err != nil {
		return err
	}
	query := `UPDATE schedule_runs
		SET status = ?, error_code = ?, error_message = ?, attempt_count = ?, schedule_json = ?, finished_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.ErrorCode,
		run.ErrorMessage,
		run.AttemptCount,
		schedBlob,
		nullableTimeToString(run.FinishedAt, timeLayout),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing schedule run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("schedule run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteScheduleRunRepo) GetByID(ctx context.Context, id string) (*domain.ScheduleRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM schedule_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule run: %w", ErrNotFound)
	}
	return run, err
}

// List returns the most recent runs first. A non-positive limit returns all.
func (r *SQLiteScheduleRunRepo) List(ctx context.Context, limit int) ([]*domain.ScheduleRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM schedule_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing schedule runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ScheduleRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *SQLiteScheduleRunRepo) AddAttempt(ctx context.Context, a *domain.RunAttempt) error {
	raw, err := compress([]byte(a.RawResponse))
	if err != nil {
		return err
	}
	query := `INSERT INTO schedule_attempts (id, run_id, number, error_code, message, raw_response, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.RunID,
		a.Number,
		a.ErrorCode,
		a.Message,
		raw,
		a.LatencyMs,
		a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting attempt %d of run %s: %w", a.Number, a.RunID, err)
	}
	return nil
}

func (r *SQLiteScheduleRunRepo) ListAttempts(ctx context.Context, runID string) ([]domain.RunAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, run_id, number, error_code, message, raw_response, latency_ms, created_at
		FROM schedule_attempts WHERE run_id = ? ORDER BY number`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.RunAttempt
	for rows.Next() {
		var a domain.RunAttempt
		var raw []byte
		var createdAt string
		if err := rows.Scan(&a.ID, &a.RunID, &a.Number, &a.ErrorCode, &a.Message, &raw, &a.LatencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		text, err := decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("attempt %d: %w", a.Number, err)
		}
		a.RawResponse = string(text)
		a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.ScheduleRun, error) {
	var run domain.ScheduleRun
	var status, createdAt string
	var finishedAt sql.NullString
	var reqBlob, schedBlob []byte

	err := row.Scan(
		&run.ID, &run.RequestHash, &status, &run.ErrorCode, &run.ErrorMessage, &run.StoryCount,
		&run.TotalMinutes, &run.AttemptCount, &run.Provider, &reqBlob, &schedBlob, &createdAt, &finishedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning schedule run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	run.FinishedAt = parseNullableTime(finishedAt, timeLayout)
	if run.RequestJSON, err = decompress(reqBlob); err != nil {
		return nil, fmt.Errorf("run %s request: %w", run.ID, err)
	}
	if run.ScheduleJSON, err = decompress(schedBlob); err != nil {
		return nil, fmt.Errorf("run %s schedule: %w", run.ID, err)
	}
	return &run, nil
}
