package models

import (
	"time"

	"slotline/internal/lifecycle"
)

// CreateBookingRequest - request body for creating a booking against a
// reserved slot
type CreateBookingRequest struct {
	ClientID        string    `json:"client_id" binding:"required"`
	WorkerID        string    `json:"worker_id" binding:"required"`
	SlotID          string    `json:"slot_id" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1"`
	ServiceType     string    `json:"service_type" binding:"required"`
	Location        string    `json:"location,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// UpdateBookingStatusRequest - request body for a status transition
type UpdateBookingStatusRequest struct {
	Status             string `json:"status" binding:"required"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

// ValidateBookingRequest - request body for an availability check
type ValidateBookingRequest struct {
	WorkerID        string    `json:"worker_id" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

// ListQuery carries the listing filters; every field participates in the
// cache key
type ListQuery struct {
	Limit  int
	Offset int
	Role   string
	Status string
}

// BookingList is a paginated listing result. This is the shape cached by
// the read path, so cache hits and store reads are byte-identical.
type BookingList struct {
	Items       []Booking `json:"items"`
	Total       int64     `json:"total"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	HasNext     bool      `json:"has_next"`
	HasPrev     bool      `json:"has_prev"`
}

// NewBookingList assembles pagination metadata around a page of items.
func NewBookingList(items []Booking, total int64, limit, offset int) *BookingList {
	if items == nil {
		items = []Booking{}
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	currentPage := offset/limit + 1
	return &BookingList{
		Items:       items,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		HasNext:     currentPage < totalPages,
		HasPrev:     currentPage > 1,
	}
}

// StatusChange is the result of a successful transition; PreviousStatus is
// attached for the caller's notification purposes.
type StatusChange struct {
	Booking
	PreviousStatus lifecycle.Status `json:"previous_status"`
}
