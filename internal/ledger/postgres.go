package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"pollbook/pkg/platform/sentinel"
)

const backendPostgres = "postgres"

var postgresDialect = dialect{
	name: backendPostgres,
	schema: `CREATE TABLE IF NOT EXISTS ledger_entries (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		expires_at BIGINT NOT NULL DEFAULT 0
	)`,
	get:      `SELECT value FROM ledger_entries WHERE key = $1`,
	getTx:    `SELECT value FROM ledger_entries WHERE key = $1 FOR UPDATE`,
	lock:     `SELECT pg_advisory_xact_lock(hashtext($1))`,
	has:      `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE key = $1)`,
	put:      `INSERT INTO ledger_entries (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
	create:   `INSERT INTO ledger_entries (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
	extend:   `UPDATE ledger_entries SET expires_at = GREATEST(expires_at, $1) WHERE key = $2`,
	expiry:   `SELECT expires_at FROM ledger_entries WHERE key = $1`,
	classify: classifyPostgres,
}

// NewPostgres returns a ledger over a postgres connection pool opened with
// either the lib/pq or the pgx stdlib driver. Reads inside
// RunInTx take a transaction-scoped advisory lock on the key, so transactions
// touching the same keys serialize even before the row exists.
func NewPostgres(db *sql.DB, opts ...SQLOption) *SQL {
	return newSQL(db, postgresDialect, opts...)
}

func classifyPostgres(err error) error {
	var code, msg string
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code, msg = string(pqErr.Code), pqErr.Message
	case errors.As(err, &pgErr):
		code, msg = pgErr.Code, pgErr.Message
	default:
		return err
	}
	switch code {
	case "23505":
		return fmt.Errorf("%s: %w", msg, sentinel.ErrAlreadyUsed)
	case "40001", "40P01":
		return fmt.Errorf("%s: %w", msg, sentinel.ErrConflict)
	case "57P01", "08006", "08001":
		return fmt.Errorf("%s: %w", msg, sentinel.ErrUnavailable)
	}
	return err
}
