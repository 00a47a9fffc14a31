// ABOUTME: Lifecycle progression engine for contacts
// ABOUTME: Enforces the fixed progression graph and derives recommended next actions
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// Allowed lifecycle transitions. A contact only moves along these edges;
// evangelist is terminal.
var lifecycleTransitions = map[string][]string{
	models.LifecycleSubscriber:         {models.LifecycleLead},
	models.LifecycleLead:               {models.LifecycleMarketingQualified, models.LifecycleSalesQualified},
	models.LifecycleMarketingQualified: {models.LifecycleSalesQualified, models.LifecycleLead},
	models.LifecycleSalesQualified:     {models.LifecycleOpportunity, models.LifecycleMarketingQualified},
	models.LifecycleOpportunity:        {models.LifecycleCustomer, models.LifecycleSalesQualified},
	models.LifecycleCustomer:           {models.LifecycleEvangelist},
	models.LifecycleEvangelist:         {},
}

func canProgress(from, to string) bool {
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LifecycleProgressionEngine moves contacts along the fixed progression
// graph and derives follow-up recommendations.
type LifecycleProgressionEngine struct {
	store EntityStore
	log   ActivityLog
	now   func() time.Time
}

func NewLifecycleProgressionEngine(store EntityStore, activityLog ActivityLog) *LifecycleProgressionEngine {
	return &LifecycleProgressionEngine{
		store: store,
		log:   activityLog,
		now:   time.Now,
	}
}

// Progress moves a contact to the target lifecycle stage. Requests outside
// the progression graph fail with InvalidProgressionError; the derived status
// is recomputed on success.
func (e *LifecycleProgressionEngine) Progress(contactID uuid.UUID, targetStage, reason string) (*models.Contact, error) {
	if !models.ValidLifecycleStage(targetStage) {
		return nil, fmt.Errorf("unknown lifecycle stage: %s", targetStage)
	}

	contact, err := e.store.GetContact(contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact == nil {
		return nil, notFound("contact", contactID)
	}

	if !canProgress(contact.LifecycleStage, targetStage) {
		return nil, &InvalidProgressionError{From: contact.LifecycleStage, To: targetStage}
	}

	previousStage := contact.LifecycleStage
	contact.LifecycleStage = targetStage
	contact.Status = models.StatusForLifecycle(targetStage)

	if err := e.store.UpdateContact(contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	description := fmt.Sprintf("Contact progressed from %s to %s", previousStage, targetStage)
	if reason != "" {
		description += ": " + reason
	}
	appendActivity(e.log, &models.Activity{
		Type:        models.ActivityContactLifecycleChanged,
		EntityType:  models.EntityContact,
		EntityID:    contact.ID,
		Description: description,
		Metadata: map[string]interface{}{
			"previous_stage": previousStage,
			"new_stage":      targetStage,
			"reason":         reason,
		},
		CreatedAt: e.now(),
	})

	return contact, nil
}

// NextActions derives recommended follow-ups from a contact's lifecycle
// stage and contact recency. Stateless read; rule order fixes the output
// order.
func (e *LifecycleProgressionEngine) NextActions(contactID uuid.UUID) ([]models.NextAction, error) {
	contact, err := e.store.GetContact(contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact == nil {
		return nil, notFound("contact", contactID)
	}

	days := contact.DaysSinceContact(e.now())
	var actions []models.NextAction

	switch contact.LifecycleStage {
	case models.LifecycleLead:
		if days < 0 || days > 3 {
			actions = append(actions, models.NextAction{
				Type:     models.ActionFollowUpCall,
				Priority: models.PriorityHigh,
				Reason:   "Lead has not been contacted in over 3 days",
			})
		}
	case models.LifecycleMarketingQualified:
		actions = append(actions, models.NextAction{
			Type:     models.ActionSalesHandoff,
			Priority: models.PriorityHigh,
			Reason:   "Marketing qualified lead is ready for sales",
		})
	case models.LifecycleSalesQualified:
		deals, err := e.store.CountDealsByContact(contact.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count deals: %w", err)
		}
		if deals == 0 {
			actions = append(actions, models.NextAction{
				Type:     models.ActionCreateOpportunity,
				Priority: models.PriorityMedium,
				Reason:   "Sales qualified contact has no deals yet",
			})
		}
	case models.LifecycleCustomer:
		if days < 0 || days > 30 {
			actions = append(actions, models.NextAction{
				Type:     models.ActionCheckIn,
				Priority: models.PriorityLow,
				Reason:   "Customer has not been contacted in over 30 days",
			})
		}
	}

	return actions, nil
}
