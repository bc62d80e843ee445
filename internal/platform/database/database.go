// Package database opens the SQL connection pools behind the ledger backends.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pollbook/internal/platform/config"
)

// OpenPostgres opens a pool with the named driver ("pq" or "pgx") and pings it.
func OpenPostgres(ctx context.Context, dsn, driver string) (*sql.DB, error) {
	name, err := postgresDriverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// OpenSQLite opens the file at path. Transactions take the write lock at
// BEGIN and wait on contention instead of failing immediately.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	return db, nil
}

// SQLiteDSN builds the modernc DSN for path.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Add("_pragma", "busy_timeout(10000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

func postgresDriverName(driver string) (string, error) {
	switch driver {
	case config.DriverPQ, "":
		return "postgres", nil
	case config.DriverPGX:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unknown postgres driver %q", driver)
	}
}
