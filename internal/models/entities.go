package models

import (
	"time"

	"slotline/internal/lifecycle"
)

// Booking represents a service booking between a client and a worker.
// It is only ever mutated through the lifecycle service's status
// transition; CancellationReason is non-nil iff the status is one of the
// cancellation states.
type Booking struct {
	ID                 string           `json:"id" db:"id"`
	ClientID           string           `json:"client_id" db:"client_id"`
	WorkerID           string           `json:"worker_id" db:"worker_id"`
	SlotID             string           `json:"slot_id" db:"slot_id"`
	ScheduledAt        time.Time        `json:"scheduled_at" db:"scheduled_at"`
	DurationMinutes    int              `json:"duration_minutes" db:"duration_minutes"`
	ServiceType        string           `json:"service_type" db:"service_type"`
	Location           *string          `json:"location" db:"location"`
	Notes              *string          `json:"notes" db:"notes"`
	Status             lifecycle.Status `json:"status" db:"status"`
	CancellationReason *string          `json:"cancellation_reason" db:"cancellation_reason"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
	Events             []BookingEvent   `json:"events,omitempty"` // Not from bookings table, filled separately
}

// BookingEvent is one immutable entry in a booking's audit trail.
// Append-only; insertion order is chronological.
type BookingEvent struct {
	ID        string    `json:"id" db:"id"`
	BookingID string    `json:"booking_id" db:"booking_id"`
	EventType string    `json:"event_type" db:"event_type"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   string
	Role lifecycle.Role
}

// ListFilter selects bookings by participant and optionally by status.
// Role narrows the participant side; empty means client or worker.
type ListFilter struct {
	UserID string
	Role   string
	Status string
}
