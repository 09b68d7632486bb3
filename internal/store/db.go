package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts the SQL execution surface the task store needs. Both
// *sql.DB and *sql.Tx satisfy it, so the same store can run against a
// pooled connection in production and inside a rolled-back transaction in
// tests.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
