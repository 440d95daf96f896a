package db

import (
	"context"
	"database/sql"
)

// DBTX is what the run repository needs from a connection. Both *sql.DB and
// *sql.Tx satisfy it, so the same repository serves the initial run insert
// and the transactional archive write.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
