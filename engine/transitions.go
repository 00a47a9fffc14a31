// ABOUTME: Stage transition engine for deals
// ABOUTME: Handles stage moves, rotten deal detection, and value recalculation
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// StageTransitionEngine moves deals between pipeline stages and keeps the
// derived fields (probability, close date, stage timestamps) consistent.
type StageTransitionEngine struct {
	store EntityStore
	log   ActivityLog
	now   func() time.Time
}

func NewStageTransitionEngine(store EntityStore, activityLog ActivityLog) *StageTransitionEngine {
	return &StageTransitionEngine{
		store: store,
		log:   activityLog,
		now:   time.Now,
	}
}

// MoveToStage moves a deal into the target stage. The deal takes the stage's
// default probability and a fresh stage timestamp. Entering a terminal stage
// stamps the close date; entering a non-terminal stage clears any stale one,
// so a reopened deal reads as open again.
func (e *StageTransitionEngine) MoveToStage(dealID, targetStageID uuid.UUID, reason string) (*models.Deal, error) {
	deal, err := e.store.GetDeal(dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if deal == nil {
		return nil, notFound("deal", dealID)
	}

	target, err := e.store.GetStage(targetStageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if target == nil {
		return nil, notFound("stage", targetStageID)
	}

	// Current stage is only needed for the activity description; a deal
	// whose stage row was deleted still moves.
	previousName := "unknown"
	if previous, err := e.store.GetStage(deal.StageID); err == nil && previous != nil {
		previousName = previous.Name
	}

	now := e.now()
	deal.StageID = target.ID
	deal.Probability = target.DefaultProbability
	deal.StageChangedAt = now

	if target.Terminal() {
		deal.ActualCloseDate = &now
	} else {
		deal.ActualCloseDate = nil
	}

	if err := e.store.MoveDealToStage(deal, now); err != nil {
		return nil, fmt.Errorf("failed to move deal: %w", err)
	}

	description := fmt.Sprintf("Deal moved from %s to %s", previousName, target.Name)
	if reason != "" {
		description += ": " + reason
	}
	appendActivity(e.log, &models.Activity{
		Type:        models.ActivityDealStageChanged,
		EntityType:  models.EntityDeal,
		EntityID:    deal.ID,
		Description: description,
		Metadata: map[string]interface{}{
			"previous_stage": previousName,
			"new_stage":      target.Name,
			"reason":         reason,
		},
		CreatedAt: now,
	})

	return deal, nil
}

// RottenDeals returns open deals that have sat in their current stage past
// that stage's rotten threshold, optionally restricted to one owner. This is
// a read-side view; nothing is mutated.
func (e *StageTransitionEngine) RottenDeals(ownerID *uuid.UUID) ([]models.RottenDeal, error) {
	deals, err := e.store.ListOpenDeals(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open deals: %w", err)
	}

	now := e.now()
	stages := make(map[uuid.UUID]*models.PipelineStage)
	var rotten []models.RottenDeal

	for _, deal := range deals {
		stage, ok := stages[deal.StageID]
		if !ok {
			stage, err = e.store.GetStage(deal.StageID)
			if err != nil {
				return nil, fmt.Errorf("failed to get stage: %w", err)
			}
			stages[deal.StageID] = stage
		}
		if stage == nil || stage.RottenDays == nil {
			continue
		}

		days := deal.DaysInStage(now)
		if days > *stage.RottenDays {
			rotten = append(rotten, models.RottenDeal{
				Deal:        deal,
				StageName:   stage.Name,
				DaysInStage: days,
				RottenDays:  *stage.RottenDays,
			})
		}
	}

	return rotten, nil
}

// RecalculateValue replaces a deal's line items and sets its value to the sum
// of the discounted line totals. Items are validated before anything is
// written; the replacement and the value update land in one transaction.
func (e *StageTransitionEngine) RecalculateValue(dealID uuid.UUID, items []models.DealLineItem) (*models.Deal, error) {
	deal, err := e.store.GetDeal(dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if deal == nil {
		return nil, notFound("deal", dealID)
	}

	var total int64
	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, fmt.Errorf("line item %q: quantity must be positive", items[i].Name)
		}
		if items[i].UnitPrice < 0 {
			return nil, fmt.Errorf("line item %q: unit price must not be negative", items[i].Name)
		}
		if items[i].DiscountPercent < 0 || items[i].DiscountPercent > 100 {
			return nil, fmt.Errorf("line item %q: discount must be between 0 and 100", items[i].Name)
		}
		total += items[i].Total()
	}

	previousValue := deal.Value

	if err := e.store.ReplaceDealLineItems(deal.ID, items, total); err != nil {
		return nil, fmt.Errorf("failed to replace line items: %w", err)
	}

	deal.Value = total

	appendActivity(e.log, &models.Activity{
		Type:        models.ActivityDealValueChanged,
		EntityType:  models.EntityDeal,
		EntityID:    deal.ID,
		Description: fmt.Sprintf("Deal value recalculated from %d to %d across %d line items", previousValue, total, len(items)),
		Metadata: map[string]interface{}{
			"previous_value": previousValue,
			"new_value":      total,
			"line_items":     len(items),
		},
		CreatedAt: e.now(),
	})

	return deal, nil
}
