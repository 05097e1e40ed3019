package consumers

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"slotline/internal/models"
)

// Handlers turns lifecycle notifications into participant-facing
// notifications. Delivery here is decoupled from the API request path; the
// API never waits on these.
type Handlers struct{}

func NewHandlers() *Handlers {
	return &Handlers{}
}

func (h *Handlers) HandleBookingCreated(msg *stan.Msg) {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode booking.created event", "error", err)
		return
	}

	slog.Info("Notifying worker of new booking request",
		"booking_id", event.BookingID,
		"client_id", event.ClientID,
		"worker_id", event.WorkerID,
		"scheduled_at", event.ScheduledAt)
}

func (h *Handlers) HandleBookingStatusChanged(msg *stan.Msg) {
	var event models.BookingStatusChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode booking.status_changed event", "error", err)
		return
	}

	slog.Info("Notifying participants of booking status change",
		"booking_id", event.BookingID,
		"previous_status", event.PreviousStatus,
		"new_status", event.NewStatus,
		"event_type", event.EventType)
}
