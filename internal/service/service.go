package service

import (
	"context"
	"time"

	"slotline/internal/external"
	"slotline/internal/lifecycle"
	"slotline/internal/lock"
	"slotline/internal/models"
)

// The lifecycle service depends on its collaborators through the interfaces
// below so tests can substitute in-memory fakes. The concrete
// implementations live in lock, cache, repository, external and messaging.

// Locker provides mutual exclusion over a named resource across process
// instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lease, error)
}

// ListingCache is the read-through cache for listing queries.
type ListingCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
	InvalidatePattern(ctx context.Context, pattern string)
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to lifecycle.Status, reason *string) (*models.Booking, error)
	List(ctx context.Context, filter models.ListFilter, limit, offset int) ([]models.Booking, error)
	Count(ctx context.Context, filter models.ListFilter) (int64, error)
}

// EventStore persists the append-only booking audit trail.
type EventStore interface {
	Create(ctx context.Context, event *models.BookingEvent) error
	ListByBooking(ctx context.Context, bookingID string, limit int) ([]models.BookingEvent, error)
}

// Availability is the external slot service.
type Availability interface {
	GetSlot(slotID, auth string) (*external.Slot, error)
	ReserveSlot(slotID, auth string) error
	ReleaseSlot(slotID, auth string) error
	CheckAvailability(workerID string, start, end time.Time, auth string) (*external.AvailabilityResult, error)
}

// WorkerDirectory is the external worker profile service.
type WorkerDirectory interface {
	GetWorker(workerID, auth string) (*external.WorkerProfile, error)
}

// Publisher is the fire-and-forget notification sink.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type Services struct {
	Bookings *BookingService
}

type Deps struct {
	Bookings     BookingStore
	Events       EventStore
	Locker       Locker
	Cache        ListingCache
	Availability Availability
	Workers      WorkerDirectory
	Publisher    Publisher
	LockTTL      time.Duration
}

func NewServices(deps Deps) *Services {
	return &Services{
		Bookings: NewBookingService(deps),
	}
}
