package repository

import (
	"context"
	"database/sql"
	"fmt"

	"slotline/internal/database"
	"slotline/internal/lifecycle"
	"slotline/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, client_id, worker_id, slot_id, scheduled_at, duration_minutes,
		       service_type, location, notes, status, cancellation_reason, created_at, updated_at`

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (client_id, worker_id, slot_id, scheduled_at, duration_minutes,
		                      service_type, location, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		booking.ClientID,
		booking.WorkerID,
		booking.SlotID,
		booking.ScheduledAt,
		booking.DurationMinutes,
		booking.ServiceType,
		booking.Location,
		booking.Notes,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

// UpdateStatus writes the new status and cancellation reason as a
// compare-and-swap against the status the caller read: when the row no
// longer holds `from`, a concurrent transition won and no rows match.
// A nil reason clears any previous one, keeping the invariant that the
// reason is set only on cancellation states.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to lifecycle.Status, reason *string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		UPDATE bookings
		SET status = $1, cancellation_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING ` + bookingColumns

	err := scanBooking(r.db.QueryRowContext(ctx, query, to, reason, id, from), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) List(ctx context.Context, filter models.ListFilter, limit, offset int) ([]models.Booking, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *BookingRepository) Count(ctx context.Context, filter models.ListFilter) (int64, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM bookings WHERE %s`, where)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// buildFilter translates a ListFilter into a WHERE clause. Without a role
// the user matches as either participant.
func buildFilter(filter models.ListFilter) (string, []interface{}) {
	args := []interface{}{filter.UserID}

	var where string
	switch filter.Role {
	case "client":
		where = "client_id = $1"
	case "worker":
		where = "worker_id = $1"
	default:
		where = "(client_id = $1 OR worker_id = $1)"
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner, booking *models.Booking) error {
	return row.Scan(
		&booking.ID,
		&booking.ClientID,
		&booking.WorkerID,
		&booking.SlotID,
		&booking.ScheduledAt,
		&booking.DurationMinutes,
		&booking.ServiceType,
		&booking.Location,
		&booking.Notes,
		&booking.Status,
		&booking.CancellationReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
}
