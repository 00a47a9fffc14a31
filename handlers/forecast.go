// ABOUTME: Forecast and conversion MCP tool handlers
// ABOUTME: Implements generate_forecast and get_conversion_rates tools
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

type ForecastHandlers struct {
	forecast   *engine.ForecastEngine
	conversion *engine.ConversionAnalyzer
}

func NewForecastHandlers(database *sql.DB) *ForecastHandlers {
	store := db.NewStore(database)
	return &ForecastHandlers{
		forecast:   engine.NewForecastEngine(store),
		conversion: engine.NewConversionAnalyzer(store),
	}
}

type GenerateForecastInput struct {
	Period     string `json:"period" jsonschema:"Forecast period: this_month, next_month, this_quarter, next_quarter"`
	OwnerID    string `json:"owner_id,omitempty" jsonschema:"Restrict to one owner's deals"`
	PipelineID string `json:"pipeline_id,omitempty" jsonschema:"Restrict to one pipeline"`
}

type BucketOutput struct {
	DealCount      int     `json:"deal_count"`
	TotalValue     int64   `json:"total_value"`
	WeightedValue  float64 `json:"weighted_value"`
	AvgProbability float64 `json:"avg_probability"`
}

type ForecastOutput struct {
	Period        string                  `json:"period"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	TotalValue    int64                   `json:"total_value"`
	WeightedValue float64                 `json:"weighted_value"`
	DealCount     int                     `json:"deal_count"`
	Confidence    int                     `json:"confidence"`
	ByStage       map[string]BucketOutput `json:"by_stage"`
	ByOwner       map[string]BucketOutput `json:"by_owner"`
}

func (h *ForecastHandlers) GenerateForecast(_ context.Context, request *mcp.CallToolRequest, input GenerateForecastInput) (*mcp.CallToolResult, ForecastOutput, error) {
	if input.Period == "" {
		return nil, ForecastOutput{}, fmt.Errorf("period is required")
	}

	var filters engine.Filters
	if input.OwnerID != "" {
		ownerID, err := uuid.Parse(input.OwnerID)
		if err != nil {
			return nil, ForecastOutput{}, fmt.Errorf("invalid owner_id: %w", err)
		}
		filters.OwnerID = &ownerID
	}
	if input.PipelineID != "" {
		pipelineID, err := uuid.Parse(input.PipelineID)
		if err != nil {
			return nil, ForecastOutput{}, fmt.Errorf("invalid pipeline_id: %w", err)
		}
		filters.PipelineID = &pipelineID
	}

	forecast, err := h.forecast.Generate(input.Period, filters)
	if err != nil {
		return nil, ForecastOutput{}, err
	}

	return nil, forecastToOutput(forecast), nil
}

type GetConversionRatesInput struct {
	PipelineID string `json:"pipeline_id" jsonschema:"Pipeline ID (required)"`
}

type ConversionRateOutput struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	DealCount int     `json:"deal_count"`
}

type GetConversionRatesOutput struct {
	Rates map[string]ConversionRateOutput `json:"rates"`
}

func (h *ForecastHandlers) GetConversionRates(_ context.Context, request *mcp.CallToolRequest, input GetConversionRatesInput) (*mcp.CallToolResult, GetConversionRatesOutput, error) {
	if input.PipelineID == "" {
		return nil, GetConversionRatesOutput{}, fmt.Errorf("pipeline_id is required")
	}

	pipelineID, err := uuid.Parse(input.PipelineID)
	if err != nil {
		return nil, GetConversionRatesOutput{}, fmt.Errorf("invalid pipeline_id: %w", err)
	}

	rates, err := h.conversion.ConversionRates(pipelineID)
	if err != nil {
		return nil, GetConversionRatesOutput{}, err
	}

	output := GetConversionRatesOutput{Rates: make(map[string]ConversionRateOutput, len(rates))}
	for key, rate := range rates {
		output.Rates[key] = ConversionRateOutput{
			From:      rate.From,
			To:        rate.To,
			Rate:      rate.Rate,
			DealCount: rate.DealCount,
		}
	}

	return nil, output, nil
}

func forecastToOutput(forecast *models.Forecast) ForecastOutput {
	output := ForecastOutput{
		Period:        forecast.Period,
		StartDate:     forecast.StartDate.Format(time.RFC3339),
		EndDate:       forecast.EndDate.Format(time.RFC3339),
		TotalValue:    forecast.TotalValue,
		WeightedValue: forecast.WeightedValue,
		DealCount:     forecast.DealCount,
		Confidence:    forecast.Confidence,
		ByStage:       make(map[string]BucketOutput, len(forecast.ByStage)),
		ByOwner:       make(map[string]BucketOutput, len(forecast.ByOwner)),
	}

	for name, bucket := range forecast.ByStage {
		output.ByStage[name] = bucketToOutput(bucket)
	}
	for name, bucket := range forecast.ByOwner {
		output.ByOwner[name] = bucketToOutput(bucket)
	}

	return output
}

func bucketToOutput(bucket models.ForecastBucket) BucketOutput {
	return BucketOutput{
		DealCount:      bucket.DealCount,
		TotalValue:     bucket.TotalValue,
		WeightedValue:  bucket.WeightedValue,
		AvgProbability: bucket.AvgProbability,
	}
}
