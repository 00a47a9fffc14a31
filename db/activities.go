// ABOUTME: Activity log database operations
// ABOUTME: Append-only domain event records keyed by entity, with ULID ids
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipegen/models"
	"github.com/oklog/ulid/v2"
)

// AppendActivity records a domain event. IDs are ULIDs so the log sorts by
// creation time without a secondary index.
func AppendActivity(db *sql.DB, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = ulid.Make().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	var metadata *string
	if len(activity.Metadata) > 0 {
		data, err := json.Marshal(activity.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode activity metadata: %w", err)
		}
		s := string(data)
		metadata = &s
	}

	_, err := db.Exec(`
		INSERT INTO activities (id, type, entity_type, entity_id, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, activity.ID, activity.Type, activity.EntityType, activity.EntityID.String(),
		activity.Description, metadata, activity.CreatedAt)

	return err
}

// ListActivitiesByEntity returns an entity's activity history, newest first.
func ListActivitiesByEntity(db *sql.DB, entityType string, entityID uuid.UUID, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, type, entity_type, entity_id, description, metadata, created_at
		FROM activities
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, entityType, entityID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var metadata sql.NullString

		if err := rows.Scan(&a.ID, &a.Type, &a.EntityType, &a.EntityID, &a.Description, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode activity metadata: %w", err)
			}
		}

		activities = append(activities, a)
	}

	return activities, rows.Err()
}
