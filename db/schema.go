// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipelines (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_stages (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL,
	name TEXT NOT NULL,
	sort_order INTEGER NOT NULL,
	default_probability INTEGER NOT NULL DEFAULT 0 CHECK(default_probability BETWEEN 0 AND 100),
	rotten_days INTEGER,
	is_won INTEGER NOT NULL DEFAULT 0,
	is_lost INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (pipeline_id) REFERENCES pipelines(id),
	UNIQUE(pipeline_id, sort_order)
);

CREATE INDEX IF NOT EXISTS idx_pipeline_stages_pipeline ON pipeline_stages(pipeline_id, sort_order);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	lifecycle_stage TEXT NOT NULL DEFAULT 'subscriber',
	status TEXT NOT NULL DEFAULT 'lead',
	notes TEXT,
	last_contacted_at DATETIME,
	fields TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_lifecycle ON contacts(lifecycle_stage);

CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	value INTEGER NOT NULL DEFAULT 0 CHECK(value >= 0),
	currency TEXT NOT NULL DEFAULT 'USD',
	probability INTEGER NOT NULL DEFAULT 0 CHECK(probability BETWEEN 0 AND 100),
	pipeline_id TEXT NOT NULL,
	stage_id TEXT NOT NULL,
	owner_id TEXT,
	owner_name TEXT,
	contact_id TEXT,
	expected_close_date DATE,
	actual_close_date DATE,
	stage_changed_at DATETIME NOT NULL,
	fields TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (pipeline_id) REFERENCES pipelines(id),
	FOREIGN KEY (stage_id) REFERENCES pipeline_stages(id),
	FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage_id);
CREATE INDEX IF NOT EXISTS idx_deals_pipeline ON deals(pipeline_id);
CREATE INDEX IF NOT EXISTS idx_deals_owner ON deals(owner_id);
CREATE INDEX IF NOT EXISTS idx_deals_expected_close ON deals(expected_close_date);
CREATE INDEX IF NOT EXISTS idx_deals_actual_close ON deals(actual_close_date);

CREATE TABLE IF NOT EXISTS deal_line_items (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	name TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK(quantity > 0),
	unit_price INTEGER NOT NULL CHECK(unit_price >= 0),
	discount_percent REAL NOT NULL DEFAULT 0 CHECK(discount_percent BETWEEN 0 AND 100),
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_deal_line_items_deal ON deal_line_items(deal_id);

CREATE TABLE IF NOT EXISTS deal_stage_visits (
	deal_id TEXT NOT NULL,
	stage_id TEXT NOT NULL,
	entered_at DATETIME NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE,
	FOREIGN KEY (stage_id) REFERENCES pipeline_stages(id)
);

CREATE INDEX IF NOT EXISTS idx_deal_stage_visits_deal ON deal_stage_visits(deal_id);

CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	description TEXT NOT NULL,
	metadata TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_entity ON activities(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_activities_created ON activities(created_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
