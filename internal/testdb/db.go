//go:build integration

package testdb

import (
	"context"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// Open connects to the test database and applies all migrations. The test is
// skipped when no test database is configured. The connection is closed when
// the test ends.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("no test database configured; set TEAMTASKS_TEST_DB_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", dbURL)
	require.NoError(t, err, "failed to connect to %s", MaskDatabaseURL(dbURL))
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db), "failed to apply migrations")
	return db
}

// Migrate applies the embedded migrations to db.
func Migrate(db *sqlx.DB) error {
	goose.SetBaseFS(postgres.Migrations)
	goose.SetTableName(postgres.MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db.DB, postgres.MigrationsDir)
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// leave no rows behind and can run in parallel.
func WithTx(t *testing.T, db *sqlx.DB, fn func(t *testing.T, tx *sqlx.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		_ = tx.Rollback()
	}()

	fn(t, tx)
}

// Truncate removes every row written by a test that needed committed data.
func Truncate(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE jobs, notifications, task_comments, tasks, users CASCADE`)
	require.NoError(t, err, "failed to truncate tables")
}
