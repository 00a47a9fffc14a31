// ABOUTME: Tests for pipeline and stage database operations
// ABOUTME: Covers atomic creation, stage ordering, and default seeding
package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

func TestCreatePipeline(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	pipeline := &models.Pipeline{Name: "Enterprise"}
	stages := []models.PipelineStage{
		{Name: "Discovery", SortOrder: 1, DefaultProbability: 20},
		{Name: "Closed Won", SortOrder: 2, DefaultProbability: 100},
	}

	if err := CreatePipeline(db, pipeline, stages); err != nil {
		t.Fatalf("CreatePipeline failed: %v", err)
	}

	if pipeline.ID == uuid.Nil {
		t.Error("Pipeline ID was not set")
	}

	loaded, err := ListStagesByPipeline(db, pipeline.ID)
	if err != nil {
		t.Fatalf("ListStagesByPipeline failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 stages, got %d", len(loaded))
	}

	if loaded[0].Name != "Discovery" {
		t.Errorf("Expected first stage Discovery, got %s", loaded[0].Name)
	}
	if !loaded[1].IsWon {
		t.Error("Closed Won stage should carry the won flag")
	}
	if loaded[1].IsLost {
		t.Error("Closed Won stage should not carry the lost flag")
	}
}

func TestCreatePipelineRollsBackOnDuplicateSortOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	pipeline := &models.Pipeline{Name: "Broken"}
	stages := []models.PipelineStage{
		{Name: "One", SortOrder: 1},
		{Name: "Two", SortOrder: 1}, // violates UNIQUE(pipeline_id, sort_order)
	}

	if err := CreatePipeline(db, pipeline, stages); err == nil {
		t.Fatal("Expected CreatePipeline to fail on duplicate sort order")
	}

	// Nothing should have been persisted
	found, err := FindPipelineByName(db, "Broken")
	if err != nil {
		t.Fatalf("FindPipelineByName failed: %v", err)
	}
	if found != nil {
		t.Error("Pipeline row survived a failed transaction")
	}
}

func TestGetStage(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, stages := setupTestPipeline(t, db)

	stage, err := GetStage(db, stages[0].ID)
	if err != nil {
		t.Fatalf("GetStage failed: %v", err)
	}
	if stage == nil {
		t.Fatal("Expected stage, got nil")
	}
	if stage.Name != models.StageProspecting {
		t.Errorf("Expected %s, got %s", models.StageProspecting, stage.Name)
	}
	if stage.RottenDays == nil || *stage.RottenDays != 30 {
		t.Error("Prospecting should have a 30 day rotten threshold")
	}

	missing, err := GetStage(db, uuid.New())
	if err != nil {
		t.Fatalf("GetStage for missing id failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for unknown stage id")
	}
}

func TestSeedDefaultPipelineIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := SeedDefaultPipeline(db)
	if err != nil {
		t.Fatalf("SeedDefaultPipeline failed: %v", err)
	}

	second, err := SeedDefaultPipeline(db)
	if err != nil {
		t.Fatalf("Second SeedDefaultPipeline failed: %v", err)
	}

	if first.ID != second.ID {
		t.Error("Seeding twice should return the same pipeline")
	}

	pipelines, err := ListPipelines(db)
	if err != nil {
		t.Fatalf("ListPipelines failed: %v", err)
	}
	if len(pipelines) != 1 {
		t.Errorf("Expected 1 pipeline, got %d", len(pipelines))
	}
}
