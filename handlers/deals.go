// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, move_deal_stage, list_rotten_deals, and recalculate_deal_value tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/engine"
	"github.com/harperreed/pipegen/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	db          *sql.DB
	transitions *engine.StageTransitionEngine
}

func NewDealHandlers(database *sql.DB) *DealHandlers {
	store := db.NewStore(database)
	return &DealHandlers{
		db:          database,
		transitions: engine.NewStageTransitionEngine(store, store),
	}
}

type CreateDealInput struct {
	Title             string `json:"title" jsonschema:"Deal title (required)"`
	Value             int64  `json:"value,omitempty" jsonschema:"Deal value in cents"`
	Currency          string `json:"currency,omitempty" jsonschema:"Currency code (default USD)"`
	PipelineID        string `json:"pipeline_id,omitempty" jsonschema:"Pipeline ID (defaults to the first pipeline)"`
	StageID           string `json:"stage_id,omitempty" jsonschema:"Stage ID (defaults to the pipeline's first stage)"`
	OwnerName         string `json:"owner_name,omitempty" jsonschema:"Deal owner's name"`
	ContactID         string `json:"contact_id,omitempty" jsonschema:"Associated contact ID"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty" jsonschema:"Expected close date in ISO 8601 format"`
}

type DealOutput struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Value             int64   `json:"value"`
	Currency          string  `json:"currency"`
	Probability       int     `json:"probability"`
	PipelineID        string  `json:"pipeline_id"`
	StageID           string  `json:"stage_id"`
	OwnerName         string  `json:"owner_name,omitempty"`
	ContactID         *string `json:"contact_id,omitempty"`
	ExpectedCloseDate *string `json:"expected_close_date,omitempty"`
	ActualCloseDate   *string `json:"actual_close_date,omitempty"`
	StageChangedAt    string  `json:"stage_changed_at"`
}

func (h *DealHandlers) CreateDeal(_ context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.Title == "" {
		return nil, DealOutput{}, fmt.Errorf("title is required")
	}

	deal := &models.Deal{
		Title:     input.Title,
		Value:     input.Value,
		Currency:  input.Currency,
		OwnerName: input.OwnerName,
	}
	if input.Value < 0 {
		return nil, DealOutput{}, fmt.Errorf("value must not be negative")
	}

	if input.PipelineID != "" {
		pipelineID, err := uuid.Parse(input.PipelineID)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid pipeline_id: %w", err)
		}
		deal.PipelineID = pipelineID
	} else {
		pipeline, err := db.SeedDefaultPipeline(h.db)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to resolve default pipeline: %w", err)
		}
		deal.PipelineID = pipeline.ID
	}

	if input.StageID != "" {
		stageID, err := uuid.Parse(input.StageID)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid stage_id: %w", err)
		}
		stage, err := db.GetStage(h.db, stageID)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to get stage: %w", err)
		}
		if stage == nil || stage.PipelineID != deal.PipelineID {
			return nil, DealOutput{}, fmt.Errorf("stage %s does not belong to pipeline %s", stageID, deal.PipelineID)
		}
		deal.StageID = stage.ID
		deal.Probability = stage.DefaultProbability
	}

	if input.ContactID != "" {
		contactID, err := uuid.Parse(input.ContactID)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid contact_id: %w", err)
		}
		deal.ContactID = &contactID
	}

	if input.ExpectedCloseDate != "" {
		parsedTime, err := time.Parse(time.RFC3339, input.ExpectedCloseDate)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("invalid expected_close_date format (use ISO 8601/RFC3339): %w", err)
		}
		deal.ExpectedCloseDate = &parsedTime
	}

	if err := db.CreateDeal(h.db, deal); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}

	return nil, dealToOutput(deal), nil
}

type MoveDealStageInput struct {
	DealID  string `json:"deal_id" jsonschema:"Deal ID (required)"`
	StageID string `json:"stage_id" jsonschema:"Target stage ID (required)"`
	Reason  string `json:"reason,omitempty" jsonschema:"Free-text reason recorded with the transition"`
}

func (h *DealHandlers) MoveDealStage(_ context.Context, request *mcp.CallToolRequest, input MoveDealStageInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.DealID == "" {
		return nil, DealOutput{}, fmt.Errorf("deal_id is required")
	}
	if input.StageID == "" {
		return nil, DealOutput{}, fmt.Errorf("stage_id is required")
	}

	dealID, err := uuid.Parse(input.DealID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("invalid deal_id: %w", err)
	}
	stageID, err := uuid.Parse(input.StageID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("invalid stage_id: %w", err)
	}

	deal, err := h.transitions.MoveToStage(dealID, stageID, input.Reason)
	if err != nil {
		return nil, DealOutput{}, err
	}

	return nil, dealToOutput(deal), nil
}

type ListRottenDealsInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"Restrict to one owner's deals"`
}

type RottenDealOutput struct {
	DealOutput
	StageName   string `json:"stage_name"`
	DaysInStage int    `json:"days_in_stage"`
	RottenDays  int    `json:"rotten_days"`
}

type ListRottenDealsOutput struct {
	Deals []RottenDealOutput `json:"deals"`
	Count int                `json:"count"`
}

func (h *DealHandlers) ListRottenDeals(_ context.Context, request *mcp.CallToolRequest, input ListRottenDealsInput) (*mcp.CallToolResult, ListRottenDealsOutput, error) {
	var ownerID *uuid.UUID
	if input.OwnerID != "" {
		parsed, err := uuid.Parse(input.OwnerID)
		if err != nil {
			return nil, ListRottenDealsOutput{}, fmt.Errorf("invalid owner_id: %w", err)
		}
		ownerID = &parsed
	}

	rotten, err := h.transitions.RottenDeals(ownerID)
	if err != nil {
		return nil, ListRottenDealsOutput{}, fmt.Errorf("failed to list rotten deals: %w", err)
	}

	output := ListRottenDealsOutput{Count: len(rotten)}
	for i := range rotten {
		output.Deals = append(output.Deals, RottenDealOutput{
			DealOutput:  dealToOutput(&rotten[i].Deal),
			StageName:   rotten[i].StageName,
			DaysInStage: rotten[i].DaysInStage,
			RottenDays:  rotten[i].RottenDays,
		})
	}

	return nil, output, nil
}

type LineItemInput struct {
	Name            string  `json:"name" jsonschema:"Line item name (required)"`
	Quantity        int64   `json:"quantity" jsonschema:"Quantity (positive integer)"`
	UnitPrice       int64   `json:"unit_price" jsonschema:"Unit price in cents (non-negative)"`
	DiscountPercent float64 `json:"discount_percent,omitempty" jsonschema:"Discount percentage 0-100"`
}

type RecalculateDealValueInput struct {
	DealID    string          `json:"deal_id" jsonschema:"Deal ID (required)"`
	LineItems []LineItemInput `json:"line_items" jsonschema:"Replacement line items"`
}

func (h *DealHandlers) RecalculateDealValue(_ context.Context, request *mcp.CallToolRequest, input RecalculateDealValueInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.DealID == "" {
		return nil, DealOutput{}, fmt.Errorf("deal_id is required")
	}

	dealID, err := uuid.Parse(input.DealID)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("invalid deal_id: %w", err)
	}

	items := make([]models.DealLineItem, len(input.LineItems))
	for i, li := range input.LineItems {
		if li.Name == "" {
			return nil, DealOutput{}, fmt.Errorf("line item %d: name is required", i+1)
		}
		items[i] = models.DealLineItem{
			Name:            li.Name,
			Quantity:        li.Quantity,
			UnitPrice:       li.UnitPrice,
			DiscountPercent: li.DiscountPercent,
		}
	}

	deal, err := h.transitions.RecalculateValue(dealID, items)
	if err != nil {
		return nil, DealOutput{}, err
	}

	return nil, dealToOutput(deal), nil
}

type FindDealsInput struct {
	PipelineID string `json:"pipeline_id,omitempty" jsonschema:"Filter by pipeline ID"`
	StageID    string `json:"stage_id,omitempty" jsonschema:"Filter by stage ID"`
	OwnerID    string `json:"owner_id,omitempty" jsonschema:"Filter by owner ID"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max results (default 50)"`
}

type FindDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
}

func (h *DealHandlers) FindDeals(_ context.Context, request *mcp.CallToolRequest, input FindDealsInput) (*mcp.CallToolResult, FindDealsOutput, error) {
	var pipelineID, stageID, ownerID *uuid.UUID

	for _, ref := range []struct {
		value string
		dest  **uuid.UUID
		name  string
	}{
		{input.PipelineID, &pipelineID, "pipeline_id"},
		{input.StageID, &stageID, "stage_id"},
		{input.OwnerID, &ownerID, "owner_id"},
	} {
		if ref.value == "" {
			continue
		}
		parsed, err := uuid.Parse(ref.value)
		if err != nil {
			return nil, FindDealsOutput{}, fmt.Errorf("invalid %s: %w", ref.name, err)
		}
		*ref.dest = &parsed
	}

	deals, err := db.FindDeals(h.db, pipelineID, stageID, ownerID, input.Limit)
	if err != nil {
		return nil, FindDealsOutput{}, fmt.Errorf("failed to find deals: %w", err)
	}

	output := FindDealsOutput{Count: len(deals)}
	for i := range deals {
		output.Deals = append(output.Deals, dealToOutput(&deals[i]))
	}

	return nil, output, nil
}

func dealToOutput(deal *models.Deal) DealOutput {
	output := DealOutput{
		ID:             deal.ID.String(),
		Title:          deal.Title,
		Value:          deal.Value,
		Currency:       deal.Currency,
		Probability:    deal.Probability,
		PipelineID:     deal.PipelineID.String(),
		StageID:        deal.StageID.String(),
		OwnerName:      deal.OwnerName,
		StageChangedAt: deal.StageChangedAt.Format(time.RFC3339),
	}

	if deal.ContactID != nil {
		cid := deal.ContactID.String()
		output.ContactID = &cid
	}
	if deal.ExpectedCloseDate != nil {
		ecd := deal.ExpectedCloseDate.Format(time.RFC3339)
		output.ExpectedCloseDate = &ecd
	}
	if deal.ActualCloseDate != nil {
		acd := deal.ActualCloseDate.Format(time.RFC3339)
		output.ActualCloseDate = &acd
	}

	return output
}
