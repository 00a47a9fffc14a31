// ABOUTME: Forecast engine aggregating open deals into weighted projections
// ABOUTME: Resolves period windows, buckets by stage and owner, scores confidence
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// ForecastEngine computes point-in-time revenue projections over open deals.
// All reads, no side effects.
type ForecastEngine struct {
	store EntityStore
	now   func() time.Time
}

func NewForecastEngine(store EntityStore) *ForecastEngine {
	return &ForecastEngine{store: store, now: time.Now}
}

// Filters narrows a forecast to one owner and/or one pipeline.
type Filters struct {
	OwnerID    *uuid.UUID
	PipelineID *uuid.UUID
}

// Generate builds a forecast for the given period over open deals whose
// expected close date falls inside the period's window.
func (e *ForecastEngine) Generate(period string, filters Filters) (*models.Forecast, error) {
	now := e.now()
	start, end, err := periodWindow(period, now)
	if err != nil {
		return nil, err
	}

	deals, err := e.store.ListDealsInWindow(start, end, filters.OwnerID, filters.PipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	forecast := &models.Forecast{
		Period:    period,
		StartDate: start,
		EndDate:   end,
		DealCount: len(deals),
		ByStage:   make(map[string]models.ForecastBucket),
		ByOwner:   make(map[string]models.ForecastBucket),
	}

	stageNames := make(map[uuid.UUID]string)
	stageProbs := make(map[string][]int)
	ownerProbs := make(map[string][]int)
	var confidenceSum float64

	for _, deal := range deals {
		stageName, ok := stageNames[deal.StageID]
		if !ok {
			stage, err := e.store.GetStage(deal.StageID)
			if err != nil {
				return nil, fmt.Errorf("failed to get stage: %w", err)
			}
			stageName = "Unknown"
			if stage != nil {
				stageName = stage.Name
			}
			stageNames[deal.StageID] = stageName
		}

		ownerName := deal.OwnerName
		if ownerName == "" {
			ownerName = "Unassigned"
		}

		weighted := deal.WeightedValue()
		forecast.TotalValue += deal.Value
		forecast.WeightedValue += weighted

		stageBucket := forecast.ByStage[stageName]
		stageBucket.DealCount++
		stageBucket.TotalValue += deal.Value
		stageBucket.WeightedValue += weighted
		forecast.ByStage[stageName] = stageBucket
		stageProbs[stageName] = append(stageProbs[stageName], deal.Probability)

		ownerBucket := forecast.ByOwner[ownerName]
		ownerBucket.DealCount++
		ownerBucket.TotalValue += deal.Value
		ownerBucket.WeightedValue += weighted
		forecast.ByOwner[ownerName] = ownerBucket
		ownerProbs[ownerName] = append(ownerProbs[ownerName], deal.Probability)

		confidenceSum += dealConfidence(&deal, now)
	}

	for name, probs := range stageProbs {
		bucket := forecast.ByStage[name]
		bucket.AvgProbability = meanInt(probs)
		forecast.ByStage[name] = bucket
	}
	for name, probs := range ownerProbs {
		bucket := forecast.ByOwner[name]
		bucket.AvgProbability = meanInt(probs)
		forecast.ByOwner[name] = bucket
	}

	if len(deals) > 0 {
		forecast.Confidence = int(math.Round(confidenceSum / float64(len(deals))))
	}

	return forecast, nil
}

// dealConfidence starts from the deal's probability and applies a staleness
// multiplier based on days since the last update. Thresholds do not compound;
// the largest one exceeded wins.
func dealConfidence(deal *models.Deal, now time.Time) float64 {
	confidence := float64(deal.Probability)

	staleDays := now.Sub(deal.UpdatedAt).Hours() / 24

	switch {
	case staleDays > 30:
		confidence *= 0.5
	case staleDays > 14:
		confidence *= 0.7
	case staleDays > 7:
		confidence *= 0.8
	case staleDays <= 2:
		confidence *= 1.1
	}

	return math.Min(confidence, 100)
}

// periodWindow resolves a named period to a concrete [start, end) window.
func periodWindow(period string, now time.Time) (time.Time, time.Time, error) {
	year, month, _ := now.Date()
	loc := now.Location()

	switch period {
	case models.PeriodThisMonth:
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	case models.PeriodNextMonth:
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
		return start, start.AddDate(0, 1, 0), nil
	case models.PeriodThisQuarter:
		start := quarterStart(year, month, loc)
		return start, start.AddDate(0, 3, 0), nil
	case models.PeriodNextQuarter:
		start := quarterStart(year, month, loc).AddDate(0, 3, 0)
		return start, start.AddDate(0, 3, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown forecast period: %s (valid: this_month, next_month, this_quarter, next_quarter)", period)
	}
}

func quarterStart(year int, month time.Month, loc *time.Location) time.Time {
	quarterMonth := time.Month(((int(month)-1)/3)*3 + 1)
	return time.Date(year, quarterMonth, 1, 0, 0, 0, 0, loc)
}

func meanInt(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
