// ABOUTME: Tests for activity log database operations
// ABOUTME: Covers ULID id assignment, metadata round trip, and per-entity listing
package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

func TestAppendActivity(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	entityID := uuid.New()
	activity := &models.Activity{
		Type:        models.ActivityDealStageChanged,
		EntityType:  models.EntityDeal,
		EntityID:    entityID,
		Description: "Deal moved from Prospecting to Proposal",
		Metadata:    map[string]interface{}{"from": "Prospecting", "to": "Proposal"},
	}

	if err := AppendActivity(db, activity); err != nil {
		t.Fatalf("AppendActivity failed: %v", err)
	}

	if activity.ID == "" {
		t.Error("Activity ID was not assigned")
	}
	if activity.CreatedAt.IsZero() {
		t.Error("CreatedAt was not assigned")
	}

	activities, err := ListActivitiesByEntity(db, models.EntityDeal, entityID, 10)
	if err != nil {
		t.Fatalf("ListActivitiesByEntity failed: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("Expected 1 activity, got %d", len(activities))
	}
	if activities[0].Metadata["from"] != "Prospecting" {
		t.Errorf("Metadata did not round trip: %v", activities[0].Metadata)
	}
}

func TestListActivitiesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	entityID := uuid.New()
	for _, desc := range []string{"first", "second", "third"} {
		activity := &models.Activity{
			Type:        models.ActivityDealValueChanged,
			EntityType:  models.EntityDeal,
			EntityID:    entityID,
			Description: desc,
		}
		if err := AppendActivity(db, activity); err != nil {
			t.Fatalf("AppendActivity failed: %v", err)
		}
	}

	activities, err := ListActivitiesByEntity(db, models.EntityDeal, entityID, 10)
	if err != nil {
		t.Fatalf("ListActivitiesByEntity failed: %v", err)
	}
	if len(activities) != 3 {
		t.Fatalf("Expected 3 activities, got %d", len(activities))
	}
	if activities[0].Description != "third" {
		t.Errorf("Expected newest first, got %s", activities[0].Description)
	}

	// Activities for other entities stay invisible
	other, err := ListActivitiesByEntity(db, models.EntityContact, entityID, 10)
	if err != nil {
		t.Fatalf("ListActivitiesByEntity failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no contact activities, got %d", len(other))
	}
}
