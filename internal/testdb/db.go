package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/modelapi/internal/platform/postgres"
	"github.com/phrazzld/modelapi/internal/platform/sqlite"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// Environment variables naming the PostgreSQL test database, in order of precedence.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTestDBURL   = "MODELAPI_TEST_DB_URL"
)

// OpenSQLite returns a migrated in-memory SQLite database that is closed
// when the test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err, "Failed to open sqlite database")
	t.Cleanup(func() { CleanupDB(t, db) })

	require.NoError(t, sqlite.Migrate(ctx, db, "up"), "Failed to run sqlite migrations")
	return db
}

// GetTestDatabaseURL returns the PostgreSQL URL for tests, or "".
func GetTestDatabaseURL() string {
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		return url
	}
	return os.Getenv(EnvTestDBURL)
}

// IsIntegrationTestEnvironment returns true if a PostgreSQL test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDBWithT returns a migrated PostgreSQL connection that is closed
// when the test ends. The test is skipped when no database is configured.
func GetTestDBWithT(t testing.TB) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err, "Failed to connect to postgres test database")
	t.Cleanup(func() { CleanupDB(t, db) })

	require.NoError(t, postgres.Migrate(ctx, db, "up"), "Failed to run postgres migrations")
	return db
}

// WithTx executes a test function within a transaction, automatically rolling back
// after the test completes. This ensures test isolation and prevents side effects.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		// sql.ErrTxDone is expected if tx is already committed or rolled back
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// CleanupDB safely closes a database connection.
func CleanupDB(t testing.TB, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close database connection: %v", err)
	}
}
