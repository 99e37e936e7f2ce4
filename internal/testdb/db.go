package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/apiview/internal/platform/postgres"
	"github.com/phrazzld/apiview/internal/redact"
)

// EnvTestDatabaseURL names the variable checked first for a test database.
// DATABASE_URL is used as a fallback.
const EnvTestDatabaseURL = "APIVIEW_TEST_DATABASE_URL"

var (
	schemaOnce sync.Once
	schemaErr  error
)

// GetTestDatabaseURL returns the configured test database URL, or "".
func GetTestDatabaseURL() string {
	for _, name := range []string{EnvTestDatabaseURL, "DATABASE_URL"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// GetTestDBWithT opens the test database, applies migrations once per test
// binary and closes the pool when t finishes. The test is skipped when no
// database URL is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dsn := GetTestDatabaseURL()
	if dsn == "" {
		t.Skipf("%s not set - skipping database test", EnvTestDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := postgres.Open(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("failed to open test database %s: %v", redact.String(dsn), err)
	}
	t.Cleanup(func() { _ = db.Close() })

	schemaOnce.Do(func() {
		schemaErr = postgres.Migrate(ctx, db, "up", logger)
	})
	if schemaErr != nil {
		t.Fatalf("failed to migrate test database: %v", schemaErr)
	}

	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
