package database

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
)

// TestDB wraps a temp-file database with cleanup helpers.
type TestDB struct {
	*DB
}

// SetupTestDB creates a migrated database in a temp directory.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(MigrationsDir()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{DB: db}
}

// MigrationsDir returns the repo's migrations path relative to this file.
func MigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
}

// TruncateAll clears all tables for test isolation.
func (tdb *TestDB) TruncateAll(t *testing.T) {
	t.Helper()

	tables := []string{
		"user_sessions",
		"users",
		"alerts",
		"daily_summaries",
		"metals_prices",
	}
	for _, table := range tables {
		if _, err := tdb.conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}

// GetRawConn returns the underlying sql.DB for direct queries in tests.
func (tdb *TestDB) GetRawConn() *sql.DB {
	return tdb.conn
}
