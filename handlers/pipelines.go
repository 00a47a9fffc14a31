// ABOUTME: Pipeline MCP tool handlers
// ABOUTME: Implements create_pipeline and list_pipelines tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PipelineHandlers struct {
	db *sql.DB
}

func NewPipelineHandlers(database *sql.DB) *PipelineHandlers {
	return &PipelineHandlers{db: database}
}

type StageInput struct {
	Name               string `json:"name" jsonschema:"Stage name (required); Closed Won / Closed Lost are terminal"`
	DefaultProbability int    `json:"default_probability" jsonschema:"Probability 0-100 assigned to deals entering the stage"`
	RottenDays         *int   `json:"rotten_days,omitempty" jsonschema:"Days in stage before an open deal counts as rotten"`
}

type CreatePipelineInput struct {
	Name   string       `json:"name" jsonschema:"Pipeline name (required)"`
	Stages []StageInput `json:"stages" jsonschema:"Ordered stages (required, at least one)"`
}

type StageOutput struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	SortOrder          int    `json:"sort_order"`
	DefaultProbability int    `json:"default_probability"`
	RottenDays         *int   `json:"rotten_days,omitempty"`
	Terminal           bool   `json:"terminal"`
}

type PipelineOutput struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Stages []StageOutput `json:"stages,omitempty"`
}

func (h *PipelineHandlers) CreatePipeline(_ context.Context, request *mcp.CallToolRequest, input CreatePipelineInput) (*mcp.CallToolResult, PipelineOutput, error) {
	if input.Name == "" {
		return nil, PipelineOutput{}, fmt.Errorf("name is required")
	}
	if len(input.Stages) == 0 {
		return nil, PipelineOutput{}, fmt.Errorf("at least one stage is required")
	}

	stages := make([]models.PipelineStage, len(input.Stages))
	for i, s := range input.Stages {
		if s.Name == "" {
			return nil, PipelineOutput{}, fmt.Errorf("stage %d: name is required", i+1)
		}
		if s.DefaultProbability < 0 || s.DefaultProbability > 100 {
			return nil, PipelineOutput{}, fmt.Errorf("stage %q: default_probability must be between 0 and 100", s.Name)
		}
		stages[i] = models.PipelineStage{
			Name:               s.Name,
			SortOrder:          i + 1,
			DefaultProbability: s.DefaultProbability,
			RottenDays:         s.RottenDays,
		}
	}

	pipeline := &models.Pipeline{Name: input.Name}
	if err := db.CreatePipeline(h.db, pipeline, stages); err != nil {
		return nil, PipelineOutput{}, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return nil, pipelineToOutput(pipeline, stages), nil
}

type ListPipelinesInput struct{}

type ListPipelinesOutput struct {
	Pipelines []PipelineOutput `json:"pipelines"`
}

func (h *PipelineHandlers) ListPipelines(_ context.Context, request *mcp.CallToolRequest, input ListPipelinesInput) (*mcp.CallToolResult, ListPipelinesOutput, error) {
	pipelines, err := db.ListPipelines(h.db)
	if err != nil {
		return nil, ListPipelinesOutput{}, fmt.Errorf("failed to list pipelines: %w", err)
	}

	output := ListPipelinesOutput{}
	for i := range pipelines {
		stages, err := db.ListStagesByPipeline(h.db, pipelines[i].ID)
		if err != nil {
			return nil, ListPipelinesOutput{}, fmt.Errorf("failed to list stages: %w", err)
		}
		output.Pipelines = append(output.Pipelines, pipelineToOutput(&pipelines[i], stages))
	}

	return nil, output, nil
}

func pipelineToOutput(pipeline *models.Pipeline, stages []models.PipelineStage) PipelineOutput {
	output := PipelineOutput{
		ID:   pipeline.ID.String(),
		Name: pipeline.Name,
	}
	for _, s := range stages {
		output.Stages = append(output.Stages, StageOutput{
			ID:                 s.ID.String(),
			Name:               s.Name,
			SortOrder:          s.SortOrder,
			DefaultProbability: s.DefaultProbability,
			RottenDays:         s.RottenDays,
			Terminal:           s.Terminal(),
		})
	}
	return output
}
