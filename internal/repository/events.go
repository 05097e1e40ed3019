package repository

import (
	"context"

	"slotline/internal/database"
	"slotline/internal/models"
)

// BookingEventRepository stores the append-only audit trail. Events are
// never updated or deleted.
type BookingEventRepository struct {
	db *database.DB
}

func NewBookingEventRepository(db *database.DB) *BookingEventRepository {
	return &BookingEventRepository{db: db}
}

func (r *BookingEventRepository) Create(ctx context.Context, event *models.BookingEvent) error {
	query := `
		INSERT INTO booking_events (booking_id, event_type)
		VALUES ($1, $2)
		RETURNING id, timestamp`

	return r.db.QueryRowContext(ctx, query,
		event.BookingID,
		event.EventType,
	).Scan(&event.ID, &event.Timestamp)
}

func (r *BookingEventRepository) ListByBooking(ctx context.Context, bookingID string, limit int) ([]models.BookingEvent, error) {
	query := `
		SELECT id, booking_id, event_type, timestamp
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, bookingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.BookingEvent
	for rows.Next() {
		var event models.BookingEvent
		err := rows.Scan(
			&event.ID,
			&event.BookingID,
			&event.EventType,
			&event.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
