// Package testdb opens migrated in-memory SQLite databases for repository
// and service tests.
package testdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/casefile/internal/client/migrations"

	_ "modernc.org/sqlite"
)

// Open returns a fresh database with the full schema. The pool is limited to
// one connection so every statement sees the same in-memory database.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}
