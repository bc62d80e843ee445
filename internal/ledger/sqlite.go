package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pollbook/pkg/platform/sentinel"
)

const backendSQLite = "sqlite"

var sqliteDialect = dialect{
	name: backendSQLite,
	schema: `CREATE TABLE IF NOT EXISTS ledger_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`,
	get:      `SELECT value FROM ledger_entries WHERE key = ?`,
	getTx:    `SELECT value FROM ledger_entries WHERE key = ?`,
	has:      `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE key = ?)`,
	put:      `INSERT INTO ledger_entries (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
	create:   `INSERT INTO ledger_entries (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`,
	extend:   `UPDATE ledger_entries SET expires_at = MAX(expires_at, ?) WHERE key = ?`,
	expiry:   `SELECT expires_at FROM ledger_entries WHERE key = ?`,
	classify: classifySQLite,
}

// NewSQLite returns a ledger over a modernc sqlite database. Open it with
// _txlock=immediate so every transaction takes the write lock up front.
func NewSQLite(db *sql.DB, opts ...SQLOption) *SQL {
	return newSQL(db, sqliteDialect, opts...)
}

func classifySQLite(err error) error {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return err
	}
	switch sqErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%s: %w", sqErr.Error(), sentinel.ErrConflict)
	case sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%s: %w", sqErr.Error(), sentinel.ErrAlreadyUsed)
	}
	return err
}
