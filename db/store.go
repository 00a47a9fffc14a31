// ABOUTME: Store adapter exposing database operations as engine capabilities
// ABOUTME: Satisfies the engine EntityStore and ActivityLog interfaces over *sql.DB
package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

// Store adapts the package's free functions to the method set the engines
// consume. There is exactly one implementation per entity, so no dispatch
// beyond this adapter is needed.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// DB exposes the underlying handle for surfaces that call the free functions directly.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) GetDeal(id uuid.UUID) (*models.Deal, error) {
	return GetDeal(s.db, id)
}

func (s *Store) MoveDealToStage(deal *models.Deal, enteredAt time.Time) error {
	return MoveDealToStage(s.db, deal, enteredAt)
}

func (s *Store) GetStage(id uuid.UUID) (*models.PipelineStage, error) {
	return GetStage(s.db, id)
}

func (s *Store) ListStagesByPipeline(pipelineID uuid.UUID) ([]models.PipelineStage, error) {
	return ListStagesByPipeline(s.db, pipelineID)
}

func (s *Store) ListOpenDeals(ownerID *uuid.UUID) ([]models.Deal, error) {
	return ListOpenDeals(s.db, ownerID)
}

func (s *Store) ListDealsInWindow(start, end time.Time, ownerID, pipelineID *uuid.UUID) ([]models.Deal, error) {
	return ListDealsInWindow(s.db, start, end, ownerID, pipelineID)
}

func (s *Store) ListClosedDealsInWindow(pipelineID uuid.UUID, start, end time.Time) ([]models.Deal, error) {
	return ListClosedDealsInWindow(s.db, pipelineID, start, end)
}

func (s *Store) ReplaceDealLineItems(dealID uuid.UUID, items []models.DealLineItem, total int64) error {
	return ReplaceDealLineItems(s.db, dealID, items, total)
}

func (s *Store) ListDealLineItems(dealID uuid.UUID) ([]models.DealLineItem, error) {
	return ListDealLineItems(s.db, dealID)
}

func (s *Store) ListStageVisits(dealID uuid.UUID) ([]models.StageVisit, error) {
	return ListStageVisits(s.db, dealID)
}

func (s *Store) GetContact(id uuid.UUID) (*models.Contact, error) {
	return GetContact(s.db, id)
}

func (s *Store) UpdateContact(contact *models.Contact) error {
	return UpdateContact(s.db, contact)
}

func (s *Store) CountDealsByContact(contactID uuid.UUID) (int, error) {
	return CountDealsByContact(s.db, contactID)
}

func (s *Store) Append(activity *models.Activity) error {
	return AppendActivity(s.db, activity)
}
