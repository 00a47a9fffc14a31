// ABOUTME: Tests for the stage transition engine
// ABOUTME: Covers stage moves, close date handling, rotten detection, and value recalculation
package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/db"
	"github.com/harperreed/pipegen/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*db.Store, *models.Pipeline, []models.PipelineStage) {
	t.Helper()

	database, err := db.OpenDatabase(t.TempDir() + "/engine.db")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	pipeline, err := db.SeedDefaultPipeline(database)
	require.NoError(t, err)

	stages, err := db.ListStagesByPipeline(database, pipeline.ID)
	require.NoError(t, err)
	require.Len(t, stages, 6)

	return db.NewStore(database), pipeline, stages
}

func createTestDeal(t *testing.T, store *db.Store, pipeline *models.Pipeline) *models.Deal {
	t.Helper()

	deal := &models.Deal{Title: "Test Deal", Value: 100000, PipelineID: pipeline.ID}
	require.NoError(t, db.CreateDeal(store.DB(), deal))
	return deal
}

// stageByName finds a seeded stage by name.
func stageByName(t *testing.T, stages []models.PipelineStage, name string) models.PipelineStage {
	t.Helper()
	for _, s := range stages {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("stage %s not found", name)
	return models.PipelineStage{}
}

// failingLog always rejects appends, for best-effort logging tests.
type failingLog struct{}

func (failingLog) Append(*models.Activity) error {
	return fmt.Errorf("log unavailable")
}

func TestMoveToStage(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	deal := createTestDeal(t, store, pipeline)
	eng := NewStageTransitionEngine(store, store)

	proposal := stageByName(t, stages, models.StageProposal)
	before := deal.StageChangedAt

	moved, err := eng.MoveToStage(deal.ID, proposal.ID, "sent the proposal")
	require.NoError(t, err)

	assert.Equal(t, proposal.ID, moved.StageID)
	assert.Equal(t, proposal.DefaultProbability, moved.Probability)
	assert.True(t, moved.StageChangedAt.After(before))
	assert.Nil(t, moved.ActualCloseDate)

	// Transition appended a stage visit and an activity
	visits, err := store.ListStageVisits(deal.ID)
	require.NoError(t, err)
	assert.Len(t, visits, 2)

	activities, err := db.ListActivitiesByEntity(store.DB(), models.EntityDeal, deal.ID, 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityDealStageChanged, activities[0].Type)
	assert.Contains(t, activities[0].Description, models.StageProspecting)
	assert.Contains(t, activities[0].Description, models.StageProposal)
	assert.Contains(t, activities[0].Description, "sent the proposal")
}

func TestMoveToStageTerminal(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	deal := createTestDeal(t, store, pipeline)
	eng := NewStageTransitionEngine(store, store)

	won := stageByName(t, stages, models.StageClosedWon)
	moved, err := eng.MoveToStage(deal.ID, won.ID, "")
	require.NoError(t, err)

	require.NotNil(t, moved.ActualCloseDate)
	assert.Equal(t, 100, moved.Probability)

	// Moving a closed deal back to a working stage clears the close date
	negotiation := stageByName(t, stages, models.StageNegotiation)
	reopened, err := eng.MoveToStage(deal.ID, negotiation.ID, "deal revived")
	require.NoError(t, err)

	assert.Nil(t, reopened.ActualCloseDate)
	assert.Equal(t, 75, reopened.Probability)
}

func TestMoveToStageNotFound(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	deal := createTestDeal(t, store, pipeline)
	eng := NewStageTransitionEngine(store, store)

	_, err := eng.MoveToStage(uuid.New(), stages[1].ID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = eng.MoveToStage(deal.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveToStageSurvivesLogFailure(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	deal := createTestDeal(t, store, pipeline)
	eng := NewStageTransitionEngine(store, failingLog{})

	moved, err := eng.MoveToStage(deal.ID, stages[1].ID, "")
	require.NoError(t, err)
	assert.Equal(t, stages[1].ID, moved.StageID)
}

func TestRottenDeals(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	eng := NewStageTransitionEngine(store, store)

	stale := createTestDeal(t, store, pipeline)
	fresh := createTestDeal(t, store, pipeline)
	closed := createTestDeal(t, store, pipeline)

	// Backdate the stale deal past Prospecting's 30 day threshold
	backdated := time.Now().AddDate(0, 0, -40)
	_, err := store.DB().Exec(`UPDATE deals SET stage_changed_at = ? WHERE id = ?`, backdated, stale.ID.String())
	require.NoError(t, err)

	// Close the third deal; closed deals are never rotten
	won := stageByName(t, stages, models.StageClosedWon)
	_, err = eng.MoveToStage(closed.ID, won.ID, "")
	require.NoError(t, err)

	rotten, err := eng.RottenDeals(nil)
	require.NoError(t, err)
	require.Len(t, rotten, 1)

	assert.Equal(t, stale.ID, rotten[0].Deal.ID)
	assert.Equal(t, models.StageProspecting, rotten[0].StageName)
	assert.Equal(t, 40, rotten[0].DaysInStage)
	assert.Equal(t, 30, rotten[0].RottenDays)

	_ = fresh
}

func TestRottenDealsIgnoresStagesWithoutThreshold(t *testing.T) {
	store, _, _ := newTestStore(t)
	eng := NewStageTransitionEngine(store, store)

	// A pipeline whose only working stage carries no rotten threshold
	pipeline := &models.Pipeline{Name: "No Thresholds"}
	stages := []models.PipelineStage{
		{Name: "Working", SortOrder: 1, DefaultProbability: 50},
		{Name: "Closed Won", SortOrder: 2, DefaultProbability: 100},
	}
	require.NoError(t, db.CreatePipeline(store.DB(), pipeline, stages))

	deal := &models.Deal{Title: "Slow Deal", PipelineID: pipeline.ID}
	require.NoError(t, db.CreateDeal(store.DB(), deal))

	backdated := time.Now().AddDate(0, 0, -365)
	_, err := store.DB().Exec(`UPDATE deals SET stage_changed_at = ? WHERE id = ?`, backdated, deal.ID.String())
	require.NoError(t, err)

	rotten, err := eng.RottenDeals(nil)
	require.NoError(t, err)
	assert.Empty(t, rotten)
}

func TestRottenDealsOwnerFilter(t *testing.T) {
	store, pipeline, _ := newTestStore(t)
	eng := NewStageTransitionEngine(store, store)

	ownerA := uuid.New()
	ownerB := uuid.New()

	for _, owner := range []uuid.UUID{ownerA, ownerB} {
		o := owner
		deal := &models.Deal{Title: "Owned Deal", PipelineID: pipeline.ID, OwnerID: &o}
		require.NoError(t, db.CreateDeal(store.DB(), deal))

		backdated := time.Now().AddDate(0, 0, -35)
		_, err := store.DB().Exec(`UPDATE deals SET stage_changed_at = ? WHERE id = ?`, backdated, deal.ID.String())
		require.NoError(t, err)
	}

	all, err := eng.RottenDeals(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := eng.RottenDeals(&ownerA)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, ownerA, *mine[0].Deal.OwnerID)
}

func TestRecalculateValue(t *testing.T) {
	store, pipeline, _ := newTestStore(t)
	deal := createTestDeal(t, store, pipeline)
	eng := NewStageTransitionEngine(store, store)

	items := []models.DealLineItem{
		{Name: "Licenses", Quantity: 2, UnitPrice: 10000, DiscountPercent: 10},
		{Name: "Onboarding", Quantity: 1, UnitPrice: 5000},
		{Name: "Hardware", Quantity: 5, UnitPrice: 2000, DiscountPercent: 20},
	}

	updated, err := eng.RecalculateValue(deal.ID, items)
	require.NoError(t, err)
	assert.Equal(t, int64(31000), updated.Value) // 18000 + 5000 + 8000

	// Idempotent for identical input
	again, err := eng.RecalculateValue(deal.ID, items)
	require.NoError(t, err)
	assert.Equal(t, int64(31000), again.Value)

	stored, err := store.ListDealLineItems(deal.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// Value change left an activity with both totals
	activities, err := db.ListActivitiesByEntity(store.DB(), models.EntityDeal, deal.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, activities)
	assert.Equal(t, models.ActivityDealValueChanged, activities[0].Type)
	assert.Equal(t, float64(31000), activities[0].Metadata["new_value"])
}

func TestRecalculateValueValidation(t *testing.T) {
	store, pipeline, _ := newTestStore(t)
	deal := createTestDeal(t, store, pipeline)
	eng := NewStageTransitionEngine(store, store)

	cases := []struct {
		name string
		item models.DealLineItem
	}{
		{"zero quantity", models.DealLineItem{Name: "bad", Quantity: 0, UnitPrice: 100}},
		{"negative quantity", models.DealLineItem{Name: "bad", Quantity: -1, UnitPrice: 100}},
		{"negative price", models.DealLineItem{Name: "bad", Quantity: 1, UnitPrice: -100}},
		{"discount over 100", models.DealLineItem{Name: "bad", Quantity: 1, UnitPrice: 100, DiscountPercent: 150}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.RecalculateValue(deal.ID, []models.DealLineItem{tc.item})
			require.Error(t, err)
		})
	}

	// Nothing was written by the rejected inputs
	found, err := store.GetDeal(deal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), found.Value)

	items, err := store.ListDealLineItems(deal.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecalculateValueMissingDeal(t *testing.T) {
	store, _, _ := newTestStore(t)
	eng := NewStageTransitionEngine(store, store)

	_, err := eng.RecalculateValue(uuid.New(), nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}
