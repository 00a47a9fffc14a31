// ABOUTME: Tests for contact MCP tool handlers
// ABOUTME: Validates lifecycle progression and next-action suggestions through the tool surface
package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
)

func TestAddContact(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewContactHandlers(database)

	_, output, err := handler.AddContact(context.Background(), nil, AddContactInput{
		Name:  "Jane Smith",
		Email: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	if output.Name != "Jane Smith" {
		t.Errorf("Expected name 'Jane Smith', got %v", output.Name)
	}
	if output.LifecycleStage != models.LifecycleSubscriber {
		t.Errorf("Expected default lifecycle subscriber, got %v", output.LifecycleStage)
	}
	if output.Status != models.StatusLead {
		t.Errorf("Expected derived status lead, got %v", output.Status)
	}
}

func TestAddContactRejectsUnknownStage(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewContactHandlers(database)

	_, _, err := handler.AddContact(context.Background(), nil, AddContactInput{
		Name:           "Bad Stage",
		LifecycleStage: "superfan",
	})
	if err == nil {
		t.Fatal("Expected error for unknown lifecycle stage")
	}
}

func TestProgressContact(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewContactHandlers(database)

	_, created, err := handler.AddContact(context.Background(), nil, AddContactInput{
		Name:           "Progressing",
		LifecycleStage: models.LifecycleLead,
	})
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	_, progressed, err := handler.ProgressContact(context.Background(), nil, ProgressContactInput{
		ContactID:   created.ID,
		TargetStage: models.LifecycleSalesQualified,
		Reason:      "qualified on call",
	})
	if err != nil {
		t.Fatalf("ProgressContact failed: %v", err)
	}

	if progressed.LifecycleStage != models.LifecycleSalesQualified {
		t.Errorf("Expected lifecycle sql, got %v", progressed.LifecycleStage)
	}
	if progressed.Status != models.StatusQualified {
		t.Errorf("Expected status qualified, got %v", progressed.Status)
	}
}

func TestProgressContactInvalidEdge(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewContactHandlers(database)

	_, created, err := handler.AddContact(context.Background(), nil, AddContactInput{
		Name: "Subscriber",
	})
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	_, _, err = handler.ProgressContact(context.Background(), nil, ProgressContactInput{
		ContactID:   created.ID,
		TargetStage: models.LifecycleCustomer,
	})

	var progressionErr *engine.InvalidProgressionError
	if !errors.As(err, &progressionErr) {
		t.Fatalf("Expected InvalidProgressionError, got %v", err)
	}
}

func TestSuggestNextActions(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewContactHandlers(database)

	_, created, err := handler.AddContact(context.Background(), nil, AddContactInput{
		Name:           "MQL Contact",
		LifecycleStage: models.LifecycleMarketingQualified,
	})
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	_, output, err := handler.SuggestNextActions(context.Background(), nil, SuggestNextActionsInput{
		ContactID: created.ID,
	})
	if err != nil {
		t.Fatalf("SuggestNextActions failed: %v", err)
	}

	if len(output.Actions) != 1 {
		t.Fatalf("Expected 1 action for MQL, got %d", len(output.Actions))
	}
	if output.Actions[0].Type != models.ActionSalesHandoff {
		t.Errorf("Expected sales_handoff, got %v", output.Actions[0].Type)
	}
	if output.Actions[0].Priority != models.PriorityHigh {
		t.Errorf("Expected high priority, got %v", output.Actions[0].Priority)
	}
}

func TestFindContactsByStage(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewContactHandlers(database)

	for _, input := range []AddContactInput{
		{Name: "Lead One", LifecycleStage: models.LifecycleLead},
		{Name: "Lead Two", LifecycleStage: models.LifecycleLead},
		{Name: "Customer", LifecycleStage: models.LifecycleCustomer},
	} {
		if _, _, err := handler.AddContact(context.Background(), nil, input); err != nil {
			t.Fatalf("AddContact failed: %v", err)
		}
	}

	_, found, err := handler.FindContacts(context.Background(), nil, FindContactsInput{
		LifecycleStage: models.LifecycleLead,
	})
	if err != nil {
		t.Fatalf("FindContacts failed: %v", err)
	}
	if found.Count != 2 {
		t.Errorf("Expected 2 leads, got %d", found.Count)
	}
}
