// ABOUTME: Shared test helpers for MCP tool handlers
// ABOUTME: Provides a temp-file SQLite database per test
package handlers

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/harperreed/pipegen/db"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return database
}
