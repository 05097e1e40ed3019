package models

import "time"

// Notification subjects
const (
	SubjectBookingCreated       = "booking.created"
	SubjectBookingStatusChanged = "booking.status_changed"
)

// BookingCreatedEvent represents a booking creation notification
type BookingCreatedEvent struct {
	BookingID   string    `json:"booking_id"`
	ClientID    string    `json:"client_id"`
	WorkerID    string    `json:"worker_id"`
	SlotID      string    `json:"slot_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingStatusChangedEvent represents a lifecycle transition notification
type BookingStatusChangedEvent struct {
	BookingID      string    `json:"booking_id"`
	ClientID       string    `json:"client_id"`
	WorkerID       string    `json:"worker_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	EventType      string    `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
}
