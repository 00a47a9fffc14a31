// ABOUTME: Tests for the conversion analyzer
// ABOUTME: Covers adjacent pair rates, zero denominators, and the no-history fallback
package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeDealThrough walks a deal through the named stages in order.
func closeDealThrough(t *testing.T, eng *StageTransitionEngine, stages []models.PipelineStage, deal *models.Deal, names ...string) {
	t.Helper()
	for _, name := range names {
		stage := stageByName(t, stages, name)
		_, err := eng.MoveToStage(deal.ID, stage.ID, "")
		require.NoError(t, err)
	}
}

func TestConversionRates(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	transitions := NewStageTransitionEngine(store, store)
	analyzer := NewConversionAnalyzer(store)

	// Deal A: full walk to a win
	dealA := createTestDeal(t, store, pipeline)
	closeDealThrough(t, transitions, stages, dealA,
		models.StageQualification, models.StageProposal, models.StageNegotiation, models.StageClosedWon)

	// Deal B: lost after qualification
	dealB := createTestDeal(t, store, pipeline)
	closeDealThrough(t, transitions, stages, dealB,
		models.StageQualification, models.StageClosedLost)

	// Deal C: lost straight from prospecting
	dealC := createTestDeal(t, store, pipeline)
	closeDealThrough(t, transitions, stages, dealC, models.StageClosedLost)

	rates, err := analyzer.ConversionRates(pipeline.ID)
	require.NoError(t, err)
	require.Len(t, rates, 5) // one entry per adjacent pair of six stages

	prospectingToQualification := rates["Prospecting_to_Qualification"]
	assert.Equal(t, models.StageProspecting, prospectingToQualification.From)
	assert.Equal(t, models.StageQualification, prospectingToQualification.To)
	assert.Equal(t, 3, prospectingToQualification.DealCount)
	assert.InDelta(t, 66.67, prospectingToQualification.Rate, 0.01)

	qualificationToProposal := rates["Qualification_to_Proposal"]
	assert.Equal(t, 2, qualificationToProposal.DealCount)
	assert.InDelta(t, 50.0, qualificationToProposal.Rate, 0.01)

	proposalToNegotiation := rates["Proposal_to_Negotiation"]
	assert.Equal(t, 1, proposalToNegotiation.DealCount)
	assert.InDelta(t, 100.0, proposalToNegotiation.Rate, 0.01)
}

func TestConversionRatesNoDeals(t *testing.T) {
	store, pipeline, _ := newTestStore(t)
	analyzer := NewConversionAnalyzer(store)

	rates, err := analyzer.ConversionRates(pipeline.ID)
	require.NoError(t, err)
	require.Len(t, rates, 5)

	// Zero deals in the earlier stage yields exactly zero, never NaN
	for key, rate := range rates {
		assert.Equal(t, 0.0, rate.Rate, "rate for %s", key)
		assert.Equal(t, 0, rate.DealCount, "count for %s", key)
	}
}

func TestConversionRatesIgnoresOpenDeals(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	transitions := NewStageTransitionEngine(store, store)
	analyzer := NewConversionAnalyzer(store)

	open := createTestDeal(t, store, pipeline)
	closeDealThrough(t, transitions, stages, open, models.StageQualification, models.StageProposal)

	rates, err := analyzer.ConversionRates(pipeline.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, rates["Prospecting_to_Qualification"].DealCount)
}

func TestConversionRatesFallbackWithoutHistory(t *testing.T) {
	store, pipeline, stages := newTestStore(t)
	transitions := NewStageTransitionEngine(store, store)
	analyzer := NewConversionAnalyzer(store)

	deal := createTestDeal(t, store, pipeline)
	closeDealThrough(t, transitions, stages, deal, models.StageClosedWon)

	// Wipe the visit history to force the sort-order approximation
	_, err := store.DB().Exec(`DELETE FROM deal_stage_visits WHERE deal_id = ?`, deal.ID.String())
	require.NoError(t, err)

	rates, err := analyzer.ConversionRates(pipeline.ID)
	require.NoError(t, err)

	// Closed Won sorts after every working stage, so the deal counts as
	// having passed through all of them.
	assert.Equal(t, 1, rates["Prospecting_to_Qualification"].DealCount)
	assert.InDelta(t, 100.0, rates["Prospecting_to_Qualification"].Rate, 0.01)
	assert.InDelta(t, 100.0, rates["Negotiation_to_Closed Won"].Rate, 0.01)
}

func TestConversionRatesUnknownPipeline(t *testing.T) {
	store, _, _ := newTestStore(t)
	analyzer := NewConversionAnalyzer(store)

	_, err := analyzer.ConversionRates(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
