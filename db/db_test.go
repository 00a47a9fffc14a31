// ABOUTME: Tests for database connection and schema initialization
// ABOUTME: Verifies WAL mode, table creation, and shared test helpers
package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/harperreed/pipegen/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}

	return db
}

// setupTestPipeline seeds the default pipeline and returns it with its stages.
func setupTestPipeline(t *testing.T, db *sql.DB) (*models.Pipeline, []models.PipelineStage) {
	t.Helper()

	pipeline, err := SeedDefaultPipeline(db)
	if err != nil {
		t.Fatalf("SeedDefaultPipeline failed: %v", err)
	}

	stages, err := ListStagesByPipeline(db, pipeline.ID)
	if err != nil {
		t.Fatalf("ListStagesByPipeline failed: %v", err)
	}
	if len(stages) != 6 {
		t.Fatalf("Expected 6 default stages, got %d", len(stages))
	}

	return pipeline, stages
}

func TestOpenDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	defer db.Close()

	// Verify database file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Verify schema was initialized
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	if count < 6 {
		t.Errorf("Expected at least 6 tables, got %d", count)
	}

	// Verify WAL mode
	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected WAL mode, got %s", mode)
	}
}

func TestOpenDatabaseInvalidPath(t *testing.T) {
	// A regular file where a parent directory is expected fails MkdirAll
	// regardless of privileges
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	_, err := OpenDatabase(filepath.Join(blocker, "sub", "test.db"))
	if err == nil {
		t.Errorf("Expected error for invalid path, but OpenDatabase succeeded")
	}
}
