package auth

import (
	"path/filepath"
	"runtime"
	"testing"

	"metals-dashboard/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, filename, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
	if err := db.Migrate(migrations); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
