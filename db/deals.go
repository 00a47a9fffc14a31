// ABOUTME: Deal, line item, and stage visit database operations
// ABOUTME: Handles deal lifecycle, atomic line item replacement, and window queries
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

const dealColumns = `id, title, value, currency, probability, pipeline_id, stage_id,
	owner_id, owner_name, contact_id, expected_close_date, actual_close_date,
	stage_changed_at, fields, created_at, updated_at`

// CreateDeal inserts a deal and its initial stage visit in one transaction.
// When no stage is assigned the deal starts in the pipeline's first stage
// with that stage's default probability.
func CreateDeal(db *sql.DB, deal *models.Deal) error {
	deal.ID = uuid.New()
	now := time.Now()
	deal.CreatedAt = now
	deal.UpdatedAt = now
	deal.StageChangedAt = now

	if deal.Currency == "" {
		deal.Currency = "USD"
	}

	if deal.StageID == uuid.Nil {
		stages, err := ListStagesByPipeline(db, deal.PipelineID)
		if err != nil {
			return err
		}
		if len(stages) == 0 {
			return fmt.Errorf("pipeline %s has no stages", deal.PipelineID)
		}
		deal.StageID = stages[0].ID
		deal.Probability = stages[0].DefaultProbability
	}

	fields, err := marshalFields(deal.Fields)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO deals (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deal.ID.String(), deal.Title, deal.Value, deal.Currency, deal.Probability,
		deal.PipelineID.String(), deal.StageID.String(),
		uuidPtrString(deal.OwnerID), deal.OwnerName, uuidPtrString(deal.ContactID),
		deal.ExpectedCloseDate, deal.ActualCloseDate, deal.StageChangedAt,
		fields, deal.CreatedAt, deal.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO deal_stage_visits (deal_id, stage_id, entered_at)
		VALUES (?, ?, ?)
	`, deal.ID.String(), deal.StageID.String(), deal.StageChangedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func GetDeal(db *sql.DB, id uuid.UUID) (*models.Deal, error) {
	row := db.QueryRow(`SELECT `+dealColumns+` FROM deals WHERE id = ?`, id.String())
	return scanDeal(row)
}

// UpdateDeal writes all mutable deal fields back to the store.
func UpdateDeal(db *sql.DB, deal *models.Deal) error {
	deal.UpdatedAt = time.Now()

	fields, err := marshalFields(deal.Fields)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE deals
		SET title = ?, value = ?, currency = ?, probability = ?, stage_id = ?,
		    owner_id = ?, owner_name = ?, contact_id = ?, expected_close_date = ?,
		    actual_close_date = ?, stage_changed_at = ?, fields = ?, updated_at = ?
		WHERE id = ?
	`, deal.Title, deal.Value, deal.Currency, deal.Probability, deal.StageID.String(),
		uuidPtrString(deal.OwnerID), deal.OwnerName, uuidPtrString(deal.ContactID),
		deal.ExpectedCloseDate, deal.ActualCloseDate, deal.StageChangedAt,
		fields, deal.UpdatedAt, deal.ID.String())

	return err
}

// MoveDealToStage persists a stage transition: the deal update and its
// stage visit commit in one transaction or not at all.
func MoveDealToStage(db *sql.DB, deal *models.Deal, enteredAt time.Time) error {
	deal.UpdatedAt = time.Now()

	fields, err := marshalFields(deal.Fields)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE deals
		SET title = ?, value = ?, currency = ?, probability = ?, stage_id = ?,
		    owner_id = ?, owner_name = ?, contact_id = ?, expected_close_date = ?,
		    actual_close_date = ?, stage_changed_at = ?, fields = ?, updated_at = ?
		WHERE id = ?
	`, deal.Title, deal.Value, deal.Currency, deal.Probability, deal.StageID.String(),
		uuidPtrString(deal.OwnerID), deal.OwnerName, uuidPtrString(deal.ContactID),
		deal.ExpectedCloseDate, deal.ActualCloseDate, deal.StageChangedAt,
		fields, deal.UpdatedAt, deal.ID.String())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	_, err = tx.Exec(`
		INSERT INTO deal_stage_visits (deal_id, stage_id, entered_at)
		VALUES (?, ?, ?)
	`, deal.ID.String(), deal.StageID.String(), enteredAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// FindDeals lists deals with optional pipeline, stage, and owner filters,
// most recently updated first.
func FindDeals(db *sql.DB, pipelineID, stageID, ownerID *uuid.UUID, limit int) ([]models.Deal, error) {
	if limit <= 0 {
		limit = 50
	}

	var conditions []string
	var args []interface{}

	if pipelineID != nil {
		conditions = append(conditions, "pipeline_id = ?")
		args = append(args, pipelineID.String())
	}
	if stageID != nil {
		conditions = append(conditions, "stage_id = ?")
		args = append(args, stageID.String())
	}
	if ownerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, ownerID.String())
	}

	query := `SELECT ` + dealColumns + ` FROM deals`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDeals(rows)
}

// ListOpenDeals returns deals with no close date, optionally for one owner.
func ListOpenDeals(db *sql.DB, ownerID *uuid.UUID) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE actual_close_date IS NULL`
	var args []interface{}

	if ownerID != nil {
		query += " AND owner_id = ?"
		args = append(args, ownerID.String())
	}
	query += " ORDER BY stage_changed_at ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDeals(rows)
}

// ListDealsInWindow returns open deals expected to close in [start, end).
func ListDealsInWindow(db *sql.DB, start, end time.Time, ownerID, pipelineID *uuid.UUID) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals
		WHERE actual_close_date IS NULL
		  AND expected_close_date IS NOT NULL
		  AND expected_close_date >= ? AND expected_close_date < ?`
	args := []interface{}{start, end}

	if ownerID != nil {
		query += " AND owner_id = ?"
		args = append(args, ownerID.String())
	}
	if pipelineID != nil {
		query += " AND pipeline_id = ?"
		args = append(args, pipelineID.String())
	}
	query += " ORDER BY expected_close_date ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDeals(rows)
}

// ListClosedDealsInWindow returns a pipeline's deals closed in [start, end).
func ListClosedDealsInWindow(db *sql.DB, pipelineID uuid.UUID, start, end time.Time) ([]models.Deal, error) {
	rows, err := db.Query(`
		SELECT `+dealColumns+` FROM deals
		WHERE pipeline_id = ?
		  AND actual_close_date IS NOT NULL
		  AND actual_close_date >= ? AND actual_close_date < ?
		ORDER BY actual_close_date ASC
	`, pipelineID.String(), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDeals(rows)
}

// ReplaceDealLineItems swaps out a deal's line items and writes the new deal
// value in the same transaction, so the total never disagrees with the items.
func ReplaceDealLineItems(db *sql.DB, dealID uuid.UUID, items []models.DealLineItem, total int64) error {
	now := time.Now()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM deal_line_items WHERE deal_id = ?`, dealID.String()); err != nil {
		return err
	}

	for i := range items {
		items[i].ID = uuid.New()
		items[i].DealID = dealID

		_, err := tx.Exec(`
			INSERT INTO deal_line_items (id, deal_id, name, quantity, unit_price, discount_percent)
			VALUES (?, ?, ?, ?, ?, ?)
		`, items[i].ID.String(), dealID.String(), items[i].Name,
			items[i].Quantity, items[i].UnitPrice, items[i].DiscountPercent)
		if err != nil {
			return err
		}
	}

	result, err := tx.Exec(`
		UPDATE deals SET value = ?, updated_at = ? WHERE id = ?
	`, total, now, dealID.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

func ListDealLineItems(db *sql.DB, dealID uuid.UUID) ([]models.DealLineItem, error) {
	rows, err := db.Query(`
		SELECT id, deal_id, name, quantity, unit_price, discount_percent
		FROM deal_line_items
		WHERE deal_id = ?
		ORDER BY rowid
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.DealLineItem
	for rows.Next() {
		var li models.DealLineItem
		if err := rows.Scan(&li.ID, &li.DealID, &li.Name, &li.Quantity, &li.UnitPrice, &li.DiscountPercent); err != nil {
			return nil, err
		}
		items = append(items, li)
	}

	return items, rows.Err()
}

func ListStageVisits(db *sql.DB, dealID uuid.UUID) ([]models.StageVisit, error) {
	rows, err := db.Query(`
		SELECT deal_id, stage_id, entered_at
		FROM deal_stage_visits
		WHERE deal_id = ?
		ORDER BY entered_at ASC
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []models.StageVisit
	for rows.Next() {
		var v models.StageVisit
		if err := rows.Scan(&v.DealID, &v.StageID, &v.EnteredAt); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}

	return visits, rows.Err()
}

// CountDealsByContact counts every deal associated with a contact,
// open or closed.
func CountDealsByContact(db *sql.DB, contactID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM deals
		WHERE contact_id = ?
	`, contactID.String()).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	deal := &models.Deal{}
	var ownerID, contactID, fields sql.NullString

	err := row.Scan(
		&deal.ID,
		&deal.Title,
		&deal.Value,
		&deal.Currency,
		&deal.Probability,
		&deal.PipelineID,
		&deal.StageID,
		&ownerID,
		&deal.OwnerName,
		&contactID,
		&deal.ExpectedCloseDate,
		&deal.ActualCloseDate,
		&deal.StageChangedAt,
		&fields,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if ownerID.Valid {
		oid, err := uuid.Parse(ownerID.String)
		if err == nil {
			deal.OwnerID = &oid
		}
	}
	if contactID.Valid {
		cid, err := uuid.Parse(contactID.String)
		if err == nil {
			deal.ContactID = &cid
		}
	}
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &deal.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode deal fields: %w", err)
		}
	}

	return deal, nil
}

func scanDeals(rows *sql.Rows) ([]models.Deal, error) {
	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func marshalFields(fields map[string]interface{}) (*string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	s := string(data)
	return &s, nil
}
