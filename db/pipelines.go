// ABOUTME: Pipeline and stage database operations
// ABOUTME: Handles atomic pipeline creation with ordered stages and default seeding
package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// CreatePipeline inserts a pipeline and all of its stages in one transaction.
// Stage IDs and terminal flags are assigned here; a failure leaves nothing behind.
func CreatePipeline(db *sql.DB, pipeline *models.Pipeline, stages []models.PipelineStage) error {
	pipeline.ID = uuid.New()
	now := time.Now()
	pipeline.CreatedAt = now
	pipeline.UpdatedAt = now

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO pipelines (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, pipeline.ID.String(), pipeline.Name, pipeline.CreatedAt, pipeline.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range stages {
		stages[i].ID = uuid.New()
		stages[i].PipelineID = pipeline.ID
		stages[i].IsWon, stages[i].IsLost = models.TerminalFlagsForName(stages[i].Name)

		_, err = tx.Exec(`
			INSERT INTO pipeline_stages (id, pipeline_id, name, sort_order, default_probability, rotten_days, is_won, is_lost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, stages[i].ID.String(), pipeline.ID.String(), stages[i].Name, stages[i].SortOrder,
			stages[i].DefaultProbability, stages[i].RottenDays, stages[i].IsWon, stages[i].IsLost)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func GetPipeline(db *sql.DB, id uuid.UUID) (*models.Pipeline, error) {
	pipeline := &models.Pipeline{}
	err := db.QueryRow(`
		SELECT id, name, created_at, updated_at FROM pipelines WHERE id = ?
	`, id.String()).Scan(&pipeline.ID, &pipeline.Name, &pipeline.CreatedAt, &pipeline.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return pipeline, nil
}

func FindPipelineByName(db *sql.DB, name string) (*models.Pipeline, error) {
	pipeline := &models.Pipeline{}
	err := db.QueryRow(`
		SELECT id, name, created_at, updated_at FROM pipelines WHERE name = ? LIMIT 1
	`, name).Scan(&pipeline.ID, &pipeline.Name, &pipeline.CreatedAt, &pipeline.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return pipeline, nil
}

func ListPipelines(db *sql.DB) ([]models.Pipeline, error) {
	rows, err := db.Query(`
		SELECT id, name, created_at, updated_at FROM pipelines ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pipelines []models.Pipeline
	for rows.Next() {
		var p models.Pipeline
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}

	return pipelines, rows.Err()
}

func GetStage(db *sql.DB, id uuid.UUID) (*models.PipelineStage, error) {
	stage := &models.PipelineStage{}
	err := db.QueryRow(`
		SELECT id, pipeline_id, name, sort_order, default_probability, rotten_days, is_won, is_lost
		FROM pipeline_stages WHERE id = ?
	`, id.String()).Scan(
		&stage.ID,
		&stage.PipelineID,
		&stage.Name,
		&stage.SortOrder,
		&stage.DefaultProbability,
		&stage.RottenDays,
		&stage.IsWon,
		&stage.IsLost,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return stage, nil
}

// ListStagesByPipeline returns a pipeline's stages ordered by sort_order.
func ListStagesByPipeline(db *sql.DB, pipelineID uuid.UUID) ([]models.PipelineStage, error) {
	rows, err := db.Query(`
		SELECT id, pipeline_id, name, sort_order, default_probability, rotten_days, is_won, is_lost
		FROM pipeline_stages
		WHERE pipeline_id = ?
		ORDER BY sort_order ASC
	`, pipelineID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.PipelineStage
	for rows.Next() {
		var s models.PipelineStage
		if err := rows.Scan(&s.ID, &s.PipelineID, &s.Name, &s.SortOrder, &s.DefaultProbability,
			&s.RottenDays, &s.IsWon, &s.IsLost); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}

	return stages, rows.Err()
}

func intPtr(n int) *int {
	return &n
}

// SeedDefaultPipeline creates the standard sales pipeline if no pipeline
// exists yet, and returns the default pipeline either way.
func SeedDefaultPipeline(db *sql.DB) (*models.Pipeline, error) {
	existing, err := ListPipelines(db)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	pipeline := &models.Pipeline{Name: "Sales Pipeline"}
	stages := []models.PipelineStage{
		{Name: models.StageProspecting, SortOrder: 1, DefaultProbability: 10, RottenDays: intPtr(30)},
		{Name: models.StageQualification, SortOrder: 2, DefaultProbability: 25, RottenDays: intPtr(30)},
		{Name: models.StageProposal, SortOrder: 3, DefaultProbability: 50, RottenDays: intPtr(30)},
		{Name: models.StageNegotiation, SortOrder: 4, DefaultProbability: 75, RottenDays: intPtr(30)},
		{Name: models.StageClosedWon, SortOrder: 5, DefaultProbability: 100},
		{Name: models.StageClosedLost, SortOrder: 6, DefaultProbability: 0},
	}

	if err := CreatePipeline(db, pipeline, stages); err != nil {
		return nil, err
	}

	return pipeline, nil
}
