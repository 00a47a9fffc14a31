// ABOUTME: Capability interfaces the engines consume
// ABOUTME: EntityStore and ActivityLog contracts satisfied by the db package
package engine

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// EntityStore is the storage capability the engines run against. Reads are
// pure; each write method is atomic for its logical mutation.
type EntityStore interface {
	GetDeal(id uuid.UUID) (*models.Deal, error)
	MoveDealToStage(deal *models.Deal, enteredAt time.Time) error
	GetStage(id uuid.UUID) (*models.PipelineStage, error)
	ListStagesByPipeline(pipelineID uuid.UUID) ([]models.PipelineStage, error)
	ListOpenDeals(ownerID *uuid.UUID) ([]models.Deal, error)
	ListDealsInWindow(start, end time.Time, ownerID, pipelineID *uuid.UUID) ([]models.Deal, error)
	ListClosedDealsInWindow(pipelineID uuid.UUID, start, end time.Time) ([]models.Deal, error)
	ReplaceDealLineItems(dealID uuid.UUID, items []models.DealLineItem, total int64) error
	ListDealLineItems(dealID uuid.UUID) ([]models.DealLineItem, error)
	ListStageVisits(dealID uuid.UUID) ([]models.StageVisit, error)
	GetContact(id uuid.UUID) (*models.Contact, error)
	UpdateContact(contact *models.Contact) error
	CountDealsByContact(contactID uuid.UUID) (int, error)
}

// ActivityLog receives domain event records. Appends are best effort from
// the engines' point of view: a failed append never fails the mutation that
// produced it.
type ActivityLog interface {
	Append(activity *models.Activity) error
}

var droppedActivities atomic.Int64

// DroppedActivities reports how many activity appends have failed since the
// process started.
func DroppedActivities() int64 {
	return droppedActivities.Load()
}

func appendActivity(al ActivityLog, activity *models.Activity) {
	if err := al.Append(activity); err != nil {
		droppedActivities.Add(1)
		log.Printf("activity append failed (%s %s): %v", activity.Type, activity.EntityID, err)
	}
}
