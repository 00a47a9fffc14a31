// ABOUTME: Conversion analyzer computing stage-to-stage pass-through rates
// ABOUTME: Works over deals closed in the trailing twelve months of a pipeline
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// ConversionAnalyzer computes how reliably deals advance between adjacent
// stages of a pipeline. Read-only.
type ConversionAnalyzer struct {
	store EntityStore
	now   func() time.Time
}

func NewConversionAnalyzer(store EntityStore) *ConversionAnalyzer {
	return &ConversionAnalyzer{store: store, now: time.Now}
}

// ConversionRates returns one entry per adjacent stage pair, keyed
// "<FromName>_to_<ToName>", over deals closed in the trailing twelve months.
// A deal passed through a stage when its visit history includes the stage;
// deals without history fall back to a sort-order comparison against their
// current stage.
func (a *ConversionAnalyzer) ConversionRates(pipelineID uuid.UUID) (map[string]models.ConversionRate, error) {
	stages, err := a.store.ListStagesByPipeline(pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	if len(stages) == 0 {
		return nil, notFound("pipeline", pipelineID)
	}

	now := a.now()
	deals, err := a.store.ListClosedDealsInWindow(pipelineID, now.AddDate(-1, 0, 0), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed deals: %w", err)
	}

	sortOrder := make(map[uuid.UUID]int, len(stages))
	for _, s := range stages {
		sortOrder[s.ID] = s.SortOrder
	}

	// passCounts[stageID] = deals that entered the stage at some point
	passCounts := make(map[uuid.UUID]int, len(stages))

	for _, deal := range deals {
		visits, err := a.store.ListStageVisits(deal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list stage visits: %w", err)
		}

		visited := make(map[uuid.UUID]bool, len(visits))
		for _, v := range visits {
			visited[v.StageID] = true
		}

		if len(visited) > 0 {
			for stageID := range visited {
				passCounts[stageID]++
			}
			continue
		}

		// No history: assume the deal walked every stage up to its current one.
		currentOrder, ok := sortOrder[deal.StageID]
		if !ok {
			continue
		}
		for _, s := range stages {
			if s.SortOrder <= currentOrder {
				passCounts[s.ID]++
			}
		}
	}

	rates := make(map[string]models.ConversionRate, len(stages)-1)
	for i := 0; i < len(stages)-1; i++ {
		from := stages[i]
		to := stages[i+1]

		fromCount := passCounts[from.ID]
		toCount := passCounts[to.ID]

		rate := 0.0
		if fromCount > 0 {
			rate = float64(toCount) / float64(fromCount) * 100
		}

		key := fmt.Sprintf("%s_to_%s", from.Name, to.Name)
		rates[key] = models.ConversionRate{
			From:      from.Name,
			To:        to.Name,
			Rate:      rate,
			DealCount: fromCount,
		}
	}

	return rates, nil
}
