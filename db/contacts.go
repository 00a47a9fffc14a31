// ABOUTME: Contact database operations
// ABOUTME: Handles contact CRUD with lifecycle stage and derived status
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
)

const contactColumns = `id, name, email, phone, lifecycle_stage, status, notes,
	last_contacted_at, fields, created_at, updated_at`

func CreateContact(db *sql.DB, contact *models.Contact) error {
	contact.ID = uuid.New()
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	if contact.LifecycleStage == "" {
		contact.LifecycleStage = models.LifecycleSubscriber
	}
	contact.Status = models.StatusForLifecycle(contact.LifecycleStage)

	fields, err := marshalFields(contact.Fields)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, contact.ID.String(), contact.Name, contact.Email, contact.Phone,
		contact.LifecycleStage, contact.Status, contact.Notes,
		contact.LastContactedAt, fields, contact.CreatedAt, contact.UpdatedAt)

	return err
}

func GetContact(db *sql.DB, id uuid.UUID) (*models.Contact, error) {
	row := db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id.String())
	return scanContact(row)
}

// UpdateContact writes all mutable contact fields back to the store.
func UpdateContact(db *sql.DB, contact *models.Contact) error {
	contact.UpdatedAt = time.Now()

	fields, err := marshalFields(contact.Fields)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE contacts
		SET name = ?, email = ?, phone = ?, lifecycle_stage = ?, status = ?,
		    notes = ?, last_contacted_at = ?, fields = ?, updated_at = ?
		WHERE id = ?
	`, contact.Name, contact.Email, contact.Phone, contact.LifecycleStage,
		contact.Status, contact.Notes, contact.LastContactedAt, fields,
		contact.UpdatedAt, contact.ID.String())

	return err
}

// FindContacts searches by name or email substring, optionally by lifecycle stage.
func FindContacts(db *sql.DB, query, lifecycleStage string, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 50
	}

	sqlQuery := `SELECT ` + contactColumns + ` FROM contacts WHERE 1=1`
	var args []interface{}

	if query != "" {
		sqlQuery += " AND (name LIKE ? OR email LIKE ?)"
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	if lifecycleStage != "" {
		sqlQuery += " AND lifecycle_stage = ?"
		args = append(args, lifecycleStage)
	}
	sqlQuery += " ORDER BY name ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}

	return contacts, rows.Err()
}

func scanContact(row rowScanner) (*models.Contact, error) {
	contact := &models.Contact{}
	var email, phone, notes, fields sql.NullString

	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&email,
		&phone,
		&contact.LifecycleStage,
		&contact.Status,
		&notes,
		&contact.LastContactedAt,
		&fields,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	contact.Email = email.String
	contact.Phone = phone.String
	contact.Notes = notes.String

	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &contact.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode contact fields: %w", err)
		}
	}

	return contact, nil
}
