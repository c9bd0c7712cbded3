package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,

	// Vehicle registry, keyed by the exact recognized plate text.
	`CREATE TABLE IF NOT EXISTS vehicles (
		number_plate         TEXT PRIMARY KEY,
		owner_name           TEXT NOT NULL,
		traffic_violations   TEXT NOT NULL,
		emission_expiry_date TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_created_at ON vehicles(created_at);`,

	// Every pipeline run, including failed detections.
	`CREATE TABLE IF NOT EXISTS plate_detections (
		id           UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		status       TEXT NOT NULL,
		outcome      TEXT NOT NULL,
		plate_text   TEXT NOT NULL DEFAULT '',
		region       JSONB,
		snapshot_url TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_detections_created_at ON plate_detections(created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_detections_plate_text ON plate_detections(plate_text) WHERE plate_text <> '';`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
