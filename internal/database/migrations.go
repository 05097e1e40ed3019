package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createBookingsTable,
		createBookingEventsTable,
		createBookingParticipantIndexes,
		createBookingEventsIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createBookingsTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    client_id UUID NOT NULL,
    worker_id UUID NOT NULL,
    slot_id UUID NOT NULL,
    scheduled_at TIMESTAMPTZ NOT NULL,
    duration_minutes INTEGER NOT NULL,
    service_type VARCHAR(100) NOT NULL,
    location TEXT,
    notes TEXT,
    status VARCHAR(32) NOT NULL DEFAULT 'requested',
    cancellation_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createBookingEventsTable = `
CREATE TABLE IF NOT EXISTS booking_events (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    booking_id UUID NOT NULL REFERENCES bookings(id),
    event_type VARCHAR(64) NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createBookingParticipantIndexes = `
CREATE INDEX IF NOT EXISTS idx_bookings_client_created ON bookings (client_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bookings_worker_created ON bookings (worker_id, created_at DESC);`

const createBookingEventsIndex = `
CREATE INDEX IF NOT EXISTS idx_booking_events_booking ON booking_events (booking_id, timestamp DESC);`
