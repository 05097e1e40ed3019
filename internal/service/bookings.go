package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotline/internal/apperrors"
	"slotline/internal/cache"
	"slotline/internal/external"
	"slotline/internal/lifecycle"
	"slotline/internal/lock"
	"slotline/internal/logger"
	"slotline/internal/models"
)

const (
	defaultLockTTL         = 30 * time.Second
	defaultListLimit       = 10
	maxListLimit           = 100
	recentEventsLimit      = 100
	listingEventsLimit     = 5
	defaultValidateMinutes = 60
)

// BookingService orchestrates the booking lifecycle: lock-protected slot
// reservation on create, the status transition state machine, and the
// cached read path.
type BookingService struct {
	bookings     BookingStore
	events       EventStore
	locker       Locker
	cache        ListingCache
	availability Availability
	workers      WorkerDirectory
	publisher    Publisher
	lockTTL      time.Duration
}

func NewBookingService(deps Deps) *BookingService {
	lockTTL := deps.LockTTL
	if lockTTL == 0 {
		lockTTL = defaultLockTTL
	}
	return &BookingService{
		bookings:     deps.Bookings,
		events:       deps.Events,
		locker:       deps.Locker,
		cache:        deps.Cache,
		availability: deps.Availability,
		workers:      deps.Workers,
		publisher:    deps.Publisher,
		lockTTL:      lockTTL,
	}
}

// Create books a slot for a client with a worker. The whole
// check-reserve-persist sequence runs under a distributed lock keyed by the
// slot, so two concurrent requests for the same slot serialize and at most
// one can reserve it.
func (s *BookingService) Create(ctx context.Context, req *models.CreateBookingRequest, auth string) (*models.Booking, error) {
	lockKey := fmt.Sprintf("booking:slot:%s", req.SlotID)
	lease, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperrors.Conflict("unable to process booking due to high demand, please try again")
		}
		return nil, apperrors.Infrastructure("failed to acquire slot lock", err)
	}
	// The lease must be released on every exit path; the TTL only bounds
	// the damage if the process dies mid-section.
	defer lease.Release(ctx)

	worker, err := s.workers.GetWorker(req.WorkerID, auth)
	if err != nil {
		return nil, err
	}
	if !worker.Offers(req.ServiceType) {
		return nil, apperrors.Validation("worker does not offer this service")
	}

	slot, err := s.availability.GetSlot(req.SlotID, auth)
	if err != nil {
		return nil, err
	}

	// Half-open interval: a booking at exactly slotStart is fine, one at
	// exactly slotEnd is not.
	if req.ScheduledAt.Before(slot.StartTime) || !req.ScheduledAt.Before(slot.EndTime) {
		return nil, apperrors.Validation("scheduled time must fall within the selected slot's time range")
	}

	if err := s.availability.ReserveSlot(req.SlotID, auth); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ClientID:        req.ClientID,
		WorkerID:        req.WorkerID,
		SlotID:          req.SlotID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		ServiceType:     req.ServiceType,
		Location:        optional(req.Location),
		Notes:           optional(req.Notes),
		Status:          lifecycle.StatusRequested,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		// Compensation: the slot was reserved but the booking never
		// materialized. Release it, but surface the original error.
		if relErr := s.availability.ReleaseSlot(req.SlotID, auth); relErr != nil {
			logger.WithContext(ctx).Error("Failed to release slot after booking error",
				"error", relErr,
				"slot_id", req.SlotID)
		}
		return nil, apperrors.Infrastructure("failed to create booking", err)
	}

	// The booking row is authoritative; a failed event write is logged,
	// not propagated.
	s.appendEvent(ctx, booking.ID, lifecycle.StatusRequested)

	s.publish(ctx, models.SubjectBookingCreated, models.BookingCreatedEvent{
		BookingID:   booking.ID,
		ClientID:    booking.ClientID,
		WorkerID:    booking.WorkerID,
		SlotID:      booking.SlotID,
		ScheduledAt: booking.ScheduledAt,
		Timestamp:   time.Now(),
	})

	s.cache.InvalidatePattern(ctx, cache.ListingPattern)

	return booking, nil
}

// UpdateStatus performs one lifecycle transition. Check order matters:
// identity before state-machine validity before role permission, so an
// outsider always sees an authorization error, never a state hint.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID string, req *models.UpdateBookingStatusRequest, actor models.Actor) (*models.StatusChange, error) {
	next := lifecycle.Status(req.Status)

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if actor.ID != booking.ClientID && actor.ID != booking.WorkerID {
		return nil, apperrors.Unauthorized("not authorized to update this booking")
	}

	if !lifecycle.IsValidTransition(booking.Status, next) {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("invalid status transition from %s to %s", booking.Status, next))
	}

	if !lifecycle.CanTransition(actor.Role, actor.ID, booking.ClientID, booking.WorkerID, next) {
		return nil, apperrors.Forbidden("role not authorized for this status change")
	}

	var reason *string
	if lifecycle.IsCancellation(next) {
		if req.CancellationReason == "" {
			return nil, apperrors.Validation("cancellation reason is required")
		}
		reason = &req.CancellationReason
	}

	// Compare-and-swap against the status read above. Two racing
	// transitions can both pass the checks on the same pre-state; only the
	// first commit wins, the loser sees zero rows here.
	updated, err := s.bookings.UpdateStatus(ctx, bookingID, booking.Status, next, reason)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to update booking status", err)
	}
	if updated == nil {
		return nil, apperrors.Conflict("booking was updated concurrently, please retry")
	}

	eventType := s.appendEvent(ctx, bookingID, next)

	// Coarse invalidation on purpose: any cached listing could contain
	// this booking, including shared or derived queries.
	s.cache.InvalidatePattern(ctx, cache.ListingPattern)

	s.publish(ctx, models.SubjectBookingStatusChanged, models.BookingStatusChangedEvent{
		BookingID:      updated.ID,
		ClientID:       updated.ClientID,
		WorkerID:       updated.WorkerID,
		PreviousStatus: string(booking.Status),
		NewStatus:      string(updated.Status),
		EventType:      eventType,
		Timestamp:      time.Now(),
	})

	return &models.StatusChange{Booking: *updated, PreviousStatus: booking.Status}, nil
}

// List returns the user's bookings, cache-first. The cache key carries
// every filter parameter; entries expire on their TTL and are invalidated
// on any booking write.
func (s *BookingService) List(ctx context.Context, userID string, query models.ListQuery) (*models.BookingList, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	key := cache.ListingKey(userID, limit, offset, query.Role, query.Status)
	var cached models.BookingList
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	filter := models.ListFilter{UserID: userID, Role: query.Role, Status: query.Status}

	bookings, err := s.bookings.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list bookings", err)
	}

	// Listing rows carry each booking's recent audit trail, newest first.
	for i := range bookings {
		events, err := s.events.ListByBooking(ctx, bookings[i].ID, listingEventsLimit)
		if err != nil {
			return nil, apperrors.Infrastructure("failed to load booking events", err)
		}
		bookings[i].Events = events
	}

	total, err := s.bookings.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to count bookings", err)
	}

	result := models.NewBookingList(bookings, total, limit, offset)
	s.cache.Set(ctx, key, result)

	return result, nil
}

// Get returns one booking with its recent audit trail, newest first.
func (s *BookingService) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	events, err := s.events.ListByBooking(ctx, bookingID, recentEventsLimit)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load booking events", err)
	}
	booking.Events = events

	return booking, nil
}

// ListEvents returns the audit trail for a booking, newest first.
func (s *BookingService) ListEvents(ctx context.Context, bookingID string, limit int) ([]models.BookingEvent, error) {
	if limit <= 0 || limit > recentEventsLimit {
		limit = recentEventsLimit
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	events, err := s.events.ListByBooking(ctx, bookingID, limit)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to load booking events", err)
	}

	return events, nil
}

// ValidateAvailability asks the availability service whether the worker is
// free for the requested window. Read-only; nothing is reserved.
func (s *BookingService) ValidateAvailability(ctx context.Context, req *models.ValidateBookingRequest, auth string) (*external.AvailabilityResult, error) {
	minutes := req.DurationMinutes
	if minutes <= 0 {
		minutes = defaultValidateMinutes
	}
	start := req.ScheduledAt
	end := start.Add(time.Duration(minutes) * time.Minute)

	return s.availability.CheckAvailability(req.WorkerID, start, end, auth)
}

// appendEvent records the audit event for a status, returning the event
// type. An unmapped status is a configuration bug: it is logged loudly and
// no event is written, rather than inventing a name.
func (s *BookingService) appendEvent(ctx context.Context, bookingID string, status lifecycle.Status) string {
	eventType, err := lifecycle.EventTypeFor(status)
	if err != nil {
		logger.WithContext(ctx).Error("Status has no mapped event type, audit event skipped",
			"error", err,
			"booking_id", bookingID,
			"status", status)
		return ""
	}

	event := &models.BookingEvent{BookingID: bookingID, EventType: eventType}
	if err := s.events.Create(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to append booking event",
			"error", err,
			"booking_id", bookingID,
			"event_type", eventType)
	}

	return eventType
}

func (s *BookingService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish notification",
			"error", err,
			"subject", subject)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
