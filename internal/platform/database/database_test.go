package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollbook/internal/platform/config"
)

func TestOpenSQLite(t *testing.T) {
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pollbook.db"))
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/x.db")
	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "busy_timeout%2810000%29")
}

func TestPostgresDriverName(t *testing.T) {
	name, err := postgresDriverName(config.DriverPQ)
	require.NoError(t, err)
	assert.Equal(t, "postgres", name)

	name, err = postgresDriverName(config.DriverPGX)
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)

	_, err = postgresDriverName("odbc")
	require.Error(t, err)
}
