// ABOUTME: Tests for deal MCP tool handlers
// ABOUTME: Validates tool input/output and error handling
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/models"
)

func TestCreateDeal(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	_, output, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{
		Title:     "Enterprise License Deal",
		Value:     5000000,
		OwnerName: "Dana",
	})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	if output.Title != "Enterprise License Deal" {
		t.Errorf("Expected title 'Enterprise License Deal', got %v", output.Title)
	}
	if output.Value != 5000000 {
		t.Errorf("Expected value 5000000, got %v", output.Value)
	}
	if output.Currency != "USD" {
		t.Errorf("Expected default currency USD, got %v", output.Currency)
	}
	if output.ID == "" {
		t.Error("ID was not set")
	}

	// Defaulted to the first stage of the seeded pipeline
	pipeline, err := db.FindPipelineByName(database, "Sales Pipeline")
	if err != nil || pipeline == nil {
		t.Fatalf("Default pipeline was not seeded: %v", err)
	}
	if output.PipelineID != pipeline.ID.String() {
		t.Errorf("Expected pipeline %s, got %s", pipeline.ID, output.PipelineID)
	}
	if output.Probability != 10 {
		t.Errorf("Expected first-stage probability 10, got %d", output.Probability)
	}
}

func TestCreateDealRequiresTitle(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	_, _, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Value: 100})
	if err == nil {
		t.Fatal("Expected error for missing title")
	}
}

func TestCreateDealRejectsNegativeValue(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	_, _, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{
		Title: "Bad Deal",
		Value: -1,
	})
	if err == nil {
		t.Fatal("Expected error for negative value")
	}
}

func TestMoveDealStage(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	_, created, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{
		Title: "Moving Deal",
		Value: 100000,
	})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	pipeline, _ := db.FindPipelineByName(database, "Sales Pipeline")
	stages, err := db.ListStagesByPipeline(database, pipeline.ID)
	if err != nil {
		t.Fatalf("ListStagesByPipeline failed: %v", err)
	}

	var won *models.PipelineStage
	for i := range stages {
		if stages[i].IsWon {
			won = &stages[i]
		}
	}
	if won == nil {
		t.Fatal("Seeded pipeline has no won stage")
	}

	_, moved, err := handler.MoveDealStage(context.Background(), nil, MoveDealStageInput{
		DealID:  created.ID,
		StageID: won.ID.String(),
		Reason:  "signed",
	})
	if err != nil {
		t.Fatalf("MoveDealStage failed: %v", err)
	}

	if moved.StageID != won.ID.String() {
		t.Errorf("Expected stage %s, got %s", won.ID, moved.StageID)
	}
	if moved.Probability != 100 {
		t.Errorf("Expected probability 100, got %d", moved.Probability)
	}
	if moved.ActualCloseDate == nil {
		t.Error("Expected actual close date on terminal stage")
	}
}

func TestRecalculateDealValue(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	_, created, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{
		Title: "Line Item Deal",
	})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	_, recalced, err := handler.RecalculateDealValue(context.Background(), nil, RecalculateDealValueInput{
		DealID: created.ID,
		LineItems: []LineItemInput{
			{Name: "Seats", Quantity: 2, UnitPrice: 10000, DiscountPercent: 10},
			{Name: "Setup", Quantity: 1, UnitPrice: 5000},
			{Name: "Training", Quantity: 5, UnitPrice: 2000, DiscountPercent: 20},
		},
	})
	if err != nil {
		t.Fatalf("RecalculateDealValue failed: %v", err)
	}

	if recalced.Value != 31000 {
		t.Errorf("Expected recalculated value 31000, got %d", recalced.Value)
	}
}

func TestRecalculateDealValueRequiresName(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	_, created, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Title: "Deal"})
	if err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	_, _, err = handler.RecalculateDealValue(context.Background(), nil, RecalculateDealValueInput{
		DealID:    created.ID,
		LineItems: []LineItemInput{{Quantity: 1, UnitPrice: 100}},
	})
	if err == nil {
		t.Fatal("Expected error for unnamed line item")
	}
}

func TestFindDeals(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	handler := NewDealHandlers(database)

	for _, title := range []string{"First", "Second"} {
		if _, _, err := handler.CreateDeal(context.Background(), nil, CreateDealInput{Title: title}); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}
	}

	_, found, err := handler.FindDeals(context.Background(), nil, FindDealsInput{})
	if err != nil {
		t.Fatalf("FindDeals failed: %v", err)
	}
	if found.Count != 2 {
		t.Errorf("Expected 2 deals, got %d", found.Count)
	}
}
