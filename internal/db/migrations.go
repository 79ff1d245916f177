package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id              UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate_number    VARCHAR(20) NOT NULL,
		owner_name      VARCHAR(255) NOT NULL,
		owner_contact   VARCHAR(100),
		vehicle_type    VARCHAR(20) NOT NULL DEFAULT 'car',
		vehicle_make    VARCHAR(100),
		vehicle_model   VARCHAR(100),
		vehicle_color   VARCHAR(50),
		status          VARCHAR(20) NOT NULL DEFAULT 'active',
		notes           TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_vehicles_plate_number ON vehicles(plate_number);`,
	`CREATE TABLE IF NOT EXISTS events (
		id                 UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		vehicle_id         UUID REFERENCES vehicles(id) ON DELETE SET NULL,
		plate_number       VARCHAR(20) NOT NULL,
		event_type         VARCHAR(10) NOT NULL,
		timestamp          TIMESTAMPTZ NOT NULL,
		camera_id          VARCHAR(50) NOT NULL,
		confidence_score   NUMERIC(5,2) NOT NULL,
		image_path         VARCHAR(500),
		barrier_action     VARCHAR(10) NOT NULL DEFAULT 'denied',
		processing_time_ms INT,
		candidates         JSONB,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_plate_number ON events(plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_events_vehicle_id ON events(vehicle_id);`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id               UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		vehicle_id       UUID NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		entry_event_id   UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		exit_event_id    UUID REFERENCES events(id) ON DELETE CASCADE,
		entry_time       TIMESTAMPTZ NOT NULL,
		exit_time        TIMESTAMPTZ,
		duration_minutes INT,
		status           VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_sessions_vehicle_id ON parking_sessions(vehicle_id);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_sessions_status ON parking_sessions(status);`,
	`CREATE INDEX IF NOT EXISTS idx_parking_sessions_entry_time ON parking_sessions(entry_time);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
