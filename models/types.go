// ABOUTME: Data models for pipeline CRM entities
// ABOUTME: Defines Pipeline, PipelineStage, Deal, DealLineItem, Contact, and Activity structs
package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Pipeline struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PipelineStage struct {
	ID                 uuid.UUID `json:"id"`
	PipelineID         uuid.UUID `json:"pipeline_id"`
	Name               string    `json:"name"`
	SortOrder          int       `json:"sort_order"`
	DefaultProbability int       `json:"default_probability"`
	RottenDays         *int      `json:"rotten_days,omitempty"`
	IsWon              bool      `json:"is_won"`
	IsLost             bool      `json:"is_lost"`
}

// Terminal reports whether a deal entering this stage is closed.
func (s *PipelineStage) Terminal() bool {
	return s.IsWon || s.IsLost
}

// TerminalFlagsForName derives won/lost flags from a stage name.
// "Closed Won" and "Closed Lost" (any case) are the terminal stages.
func TerminalFlagsForName(name string) (won, lost bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == "closed won", n == "closed lost"
}

// Default pipeline stage names.
const (
	StageProspecting   = "Prospecting"
	StageQualification = "Qualification"
	StageProposal      = "Proposal"
	StageNegotiation   = "Negotiation"
	StageClosedWon     = "Closed Won"
	StageClosedLost    = "Closed Lost"
)

type Deal struct {
	ID                uuid.UUID              `json:"id"`
	Title             string                 `json:"title"`
	Value             int64                  `json:"value"` // in cents
	Currency          string                 `json:"currency"`
	Probability       int                    `json:"probability"`
	PipelineID        uuid.UUID              `json:"pipeline_id"`
	StageID           uuid.UUID              `json:"stage_id"`
	OwnerID           *uuid.UUID             `json:"owner_id,omitempty"`
	OwnerName         string                 `json:"owner_name,omitempty"`
	ContactID         *uuid.UUID             `json:"contact_id,omitempty"`
	ExpectedCloseDate *time.Time             `json:"expected_close_date,omitempty"`
	ActualCloseDate   *time.Time             `json:"actual_close_date,omitempty"`
	StageChangedAt    time.Time              `json:"stage_changed_at"`
	Fields            map[string]interface{} `json:"fields,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Open reports whether the deal has not yet closed.
func (d *Deal) Open() bool {
	return d.ActualCloseDate == nil
}

// WeightedValue returns the deal value scaled by its probability.
func (d *Deal) WeightedValue() float64 {
	return float64(d.Value) * float64(d.Probability) / 100.0
}

// DaysInStage returns whole days since the last stage transition.
func (d *Deal) DaysInStage(now time.Time) int {
	return int(now.Sub(d.StageChangedAt).Hours() / 24)
}

type DealLineItem struct {
	ID              uuid.UUID `json:"id"`
	DealID          uuid.UUID `json:"deal_id"`
	Name            string    `json:"name"`
	Quantity        int64     `json:"quantity"`
	UnitPrice       int64     `json:"unit_price"` // in cents
	DiscountPercent float64   `json:"discount_percent"`
}

// Total returns the discounted line total in cents.
func (li *DealLineItem) Total() int64 {
	gross := float64(li.Quantity * li.UnitPrice)
	return int64(math.Round(gross * (1 - li.DiscountPercent/100.0)))
}

// StageVisit records a deal entering a stage, used for conversion analysis.
type StageVisit struct {
	DealID    uuid.UUID `json:"deal_id"`
	StageID   uuid.UUID `json:"stage_id"`
	EnteredAt time.Time `json:"entered_at"`
}

// RottenDeal is a read-side view of an open deal that has sat in its
// stage past the stage's rotten threshold.
type RottenDeal struct {
	Deal
	StageName   string `json:"stage_name"`
	DaysInStage int    `json:"days_in_stage"`
	RottenDays  int    `json:"rotten_days"`
}

type Contact struct {
	ID              uuid.UUID              `json:"id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email,omitempty"`
	Phone           string                 `json:"phone,omitempty"`
	LifecycleStage  string                 `json:"lifecycle_stage"`
	Status          string                 `json:"status"`
	Notes           string                 `json:"notes,omitempty"`
	LastContactedAt *time.Time             `json:"last_contacted_at,omitempty"`
	Fields          map[string]interface{} `json:"fields,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// DaysSinceContact returns whole days since last contact, or -1 when the
// contact has never been reached.
func (c *Contact) DaysSinceContact(now time.Time) int {
	if c.LastContactedAt == nil {
		return -1
	}
	return int(now.Sub(*c.LastContactedAt).Hours() / 24)
}

// Lifecycle stage constants.
const (
	LifecycleSubscriber         = "subscriber"
	LifecycleLead               = "lead"
	LifecycleMarketingQualified = "marketing_qualified"
	LifecycleSalesQualified     = "sales_qualified"
	LifecycleOpportunity        = "opportunity"
	LifecycleCustomer           = "customer"
	LifecycleEvangelist         = "evangelist"
)

// Contact status constants, derived from lifecycle stage.
const (
	StatusLead      = "lead"
	StatusProspect  = "prospect"
	StatusQualified = "qualified"
	StatusCustomer  = "customer"
)

var lifecycleStatus = map[string]string{
	LifecycleSubscriber:         StatusLead,
	LifecycleLead:               StatusLead,
	LifecycleMarketingQualified: StatusProspect,
	LifecycleSalesQualified:     StatusQualified,
	LifecycleOpportunity:        StatusQualified,
	LifecycleCustomer:           StatusCustomer,
	LifecycleEvangelist:         StatusCustomer,
}

// StatusForLifecycle maps a lifecycle stage to its derived contact status.
func StatusForLifecycle(stage string) string {
	if status, ok := lifecycleStatus[stage]; ok {
		return status
	}
	return StatusLead
}

// ValidLifecycleStage reports whether stage is a known lifecycle stage.
func ValidLifecycleStage(stage string) bool {
	_, ok := lifecycleStatus[stage]
	return ok
}

// Activity types.
const (
	ActivityDealCreated             = "deal_created"
	ActivityDealStageChanged        = "deal_stage_changed"
	ActivityDealValueChanged        = "deal_value_changed"
	ActivityContactLifecycleChanged = "contact_lifecycle_changed"
)

// Entity types for activity records.
const (
	EntityDeal    = "deal"
	EntityContact = "contact"
)

// Activity is one append-only domain event record. IDs are ULIDs so the
// log sorts lexicographically by creation time.
type Activity struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	EntityType  string                 `json:"entity_type"`
	EntityID    uuid.UUID              `json:"entity_id"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Forecast is an ephemeral computed aggregate; it is never persisted.
type Forecast struct {
	Period        string                    `json:"period"`
	StartDate     time.Time                 `json:"start_date"`
	EndDate       time.Time                 `json:"end_date"`
	TotalValue    int64                     `json:"total_value"`
	WeightedValue float64                   `json:"weighted_value"`
	DealCount     int                       `json:"deal_count"`
	Confidence    int                       `json:"confidence"`
	ByStage       map[string]ForecastBucket `json:"by_stage"`
	ByOwner       map[string]ForecastBucket `json:"by_owner"`
}

type ForecastBucket struct {
	DealCount      int     `json:"deal_count"`
	TotalValue     int64   `json:"total_value"`
	WeightedValue  float64 `json:"weighted_value"`
	AvgProbability float64 `json:"avg_probability"`
}

// Forecast period constants.
const (
	PeriodThisMonth   = "this_month"
	PeriodNextMonth   = "next_month"
	PeriodThisQuarter = "this_quarter"
	PeriodNextQuarter = "next_quarter"
)

// ConversionRate describes deal flow between two adjacent stages.
type ConversionRate struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	DealCount int     `json:"deal_count"`
}

// NextAction is a recommended follow-up derived from a contact's state.
type NextAction struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

// Next action types.
const (
	ActionFollowUpCall      = "follow_up_call"
	ActionSalesHandoff      = "sales_handoff"
	ActionCreateOpportunity = "create_opportunity"
	ActionCheckIn           = "check_in"
)

// Next action priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)
