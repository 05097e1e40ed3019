package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotline/internal/apperrors"
	"slotline/internal/external"
	"slotline/internal/lifecycle"
	"slotline/internal/lock"
	"slotline/internal/models"
)

type fakeLease struct {
	mu        sync.Mutex
	releases  int
	onRelease func()
}

func (l *fakeLease) Release(ctx context.Context) {
	l.mu.Lock()
	l.releases++
	first := l.releases == 1
	l.mu.Unlock()
	if first && l.onRelease != nil {
		l.onRelease()
	}
}

func (l *fakeLease) Extend(ctx context.Context, ttl time.Duration) bool { return true }

// fakeLocker grants at most one lease per key, like the real thing.
type fakeLocker struct {
	mu        sync.Mutex
	held      map[string]bool
	lastLease *fakeLease
	failWith  error
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.held == nil {
		f.held = make(map[string]bool)
	}
	if f.held[key] {
		return nil, lock.ErrNotAcquired
	}
	f.held[key] = true
	lease := &fakeLease{onRelease: func() {
		f.mu.Lock()
		delete(f.held, key)
		f.mu.Unlock()
	}}
	f.lastLease = lease
	return lease, nil
}

// fakeAvailability reserves a slot at most once, so racing creates observe
// the same conflict the real service would report.
type fakeAvailability struct {
	mu           sync.Mutex
	slot         *external.Slot
	getErr       error
	reserved     bool
	reserveErr   error
	reserveCalls int
	releaseErr   error
	releaseCalls int
	result       *external.AvailabilityResult
	checkErr     error
	checkedStart time.Time
	checkedEnd   time.Time
}

func (f *fakeAvailability) GetSlot(slotID, auth string) (*external.Slot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s := *f.slot
	return &s, nil
}

func (f *fakeAvailability) ReserveSlot(slotID, auth string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++
	if f.reserveErr != nil {
		return f.reserveErr
	}
	if f.reserved {
		return apperrors.Conflict("slot is already reserved")
	}
	f.reserved = true
	return nil
}

func (f *fakeAvailability) ReleaseSlot(slotID, auth string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.reserved = false
	return nil
}

func (f *fakeAvailability) CheckAvailability(workerID string, start, end time.Time, auth string) (*external.AvailabilityResult, error) {
	f.checkedStart = start
	f.checkedEnd = end
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.result, nil
}

type fakeWorkers struct {
	worker *external.WorkerProfile
	err    error
}

func (f *fakeWorkers) GetWorker(workerID, auth string) (*external.WorkerProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.worker, nil
}

type publishedMessage struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, publishedMessage{subject: subject, data: data})
	return nil
}

// fakeCache stores JSON like the real one, with prefix-match invalidation.
type fakeCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	invalidations int
}

func (f *fakeCache) Get(ctx context.Context, key string, dest any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if f.entries == nil {
		f.entries = make(map[string][]byte)
	}
	f.entries[key] = data
}

func (f *fakeCache) InvalidatePattern(ctx context.Context, pattern string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
}

type fakeBookingStore struct {
	mu        sync.Mutex
	bookings  map[string]*models.Booking
	createErr error
	nextID    int
}

func (f *fakeBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	booking.ID = fmt.Sprintf("booking-%d", f.nextID)
	// UTC strips the monotonic clock reading so values compare equal after
	// a JSON roundtrip through the cache.
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt
	if f.bookings == nil {
		f.bookings = make(map[string]*models.Booking)
	}
	stored := *booking
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeBookingStore) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	b := *stored
	return &b, nil
}

func (f *fakeBookingStore) UpdateStatus(ctx context.Context, id string, from, to lifecycle.Status, reason *string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	if stored.Status != from {
		return nil, nil
	}
	stored.Status = to
	stored.CancellationReason = reason
	stored.UpdatedAt = time.Now().UTC()
	b := *stored
	return &b, nil
}

func (f *fakeBookingStore) List(ctx context.Context, filter models.ListFilter, limit, offset int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := f.match(filter)
	if offset >= len(matched) {
		return []models.Booking{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeBookingStore) Count(ctx context.Context, filter models.ListFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.match(filter))), nil
}

func (f *fakeBookingStore) match(filter models.ListFilter) []models.Booking {
	var out []models.Booking
	for i := 1; i <= f.nextID; i++ {
		stored, ok := f.bookings[fmt.Sprintf("booking-%d", i)]
		if !ok {
			continue
		}
		switch filter.Role {
		case "client":
			if stored.ClientID != filter.UserID {
				continue
			}
		case "worker":
			if stored.WorkerID != filter.UserID {
				continue
			}
		default:
			if stored.ClientID != filter.UserID && stored.WorkerID != filter.UserID {
				continue
			}
		}
		if filter.Status != "" && string(stored.Status) != filter.Status {
			continue
		}
		out = append(out, *stored)
	}
	return out
}

type fakeEventStore struct {
	mu        sync.Mutex
	events    []models.BookingEvent
	createErr error
}

func (f *fakeEventStore) Create(ctx context.Context, event *models.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	event.ID = fmt.Sprintf("event-%d", len(f.events)+1)
	event.Timestamp = time.Now().UTC()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventStore) ListByBooking(ctx context.Context, bookingID string, limit int) ([]models.BookingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].BookingID == bookingID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

type testEnv struct {
	service      *BookingService
	store        *fakeBookingStore
	events       *fakeEventStore
	locker       *fakeLocker
	cache        *fakeCache
	availability *fakeAvailability
	workers      *fakeWorkers
	publisher    *fakePublisher
}

var testSlotStart = time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  &fakeBookingStore{},
		events: &fakeEventStore{},
		locker: &fakeLocker{},
		cache:  &fakeCache{},
		availability: &fakeAvailability{
			slot: &external.Slot{
				ID:        "slot-1",
				WorkerID:  "worker-1",
				StartTime: testSlotStart,
				EndTime:   testSlotStart.Add(time.Hour),
			},
			result: &external.AvailabilityResult{Available: true},
		},
		workers: &fakeWorkers{
			worker: &external.WorkerProfile{
				ID:         "worker-1",
				Categories: []external.ServiceCategory{{Name: "plumbing"}, {Name: "electrical"}},
			},
		},
		publisher: &fakePublisher{},
	}
	env.service = NewBookingService(Deps{
		Bookings:     env.store,
		Events:       env.events,
		Locker:       env.locker,
		Cache:        env.cache,
		Availability: env.availability,
		Workers:      env.workers,
		Publisher:    env.publisher,
	})
	return env
}

func createRequest() *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		ClientID:        "client-1",
		WorkerID:        "worker-1",
		SlotID:          "slot-1",
		ScheduledAt:     testSlotStart.Add(15 * time.Minute),
		DurationMinutes: 30,
		ServiceType:     "plumbing",
	}
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	booking, err := env.service.Create(ctx, createRequest(), "Bearer token")
	require.NoError(t, err)

	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, lifecycle.StatusRequested, booking.Status)
	assert.Equal(t, 1, env.availability.reserveCalls)
	assert.Equal(t, 0, env.availability.releaseCalls)

	// The lease must be gone so the next create on this slot can proceed.
	assert.Equal(t, 1, env.locker.lastLease.releases)
	assert.False(t, env.locker.held["booking:slot:slot-1"])

	require.Len(t, env.events.events, 1)
	assert.Equal(t, "BookingRequested", env.events.events[0].EventType)
	assert.Equal(t, booking.ID, env.events.events[0].BookingID)

	require.Len(t, env.publisher.messages, 1)
	assert.Equal(t, models.SubjectBookingCreated, env.publisher.messages[0].subject)

	assert.Equal(t, 1, env.cache.invalidations)
}

func TestCreateLockContention(t *testing.T) {
	env := newTestEnv(t)
	env.locker.held = map[string]bool{"booking:slot:slot-1": true}

	_, err := env.service.Create(context.Background(), createRequest(), "")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// Nothing downstream of the lock may have run.
	assert.Equal(t, 0, env.availability.reserveCalls)
	assert.Empty(t, env.store.bookings)
}

func TestCreateReleasesSlotWhenPersistFails(t *testing.T) {
	env := newTestEnv(t)
	env.store.createErr = errors.New("connection reset")

	_, err := env.service.Create(context.Background(), createRequest(), "")
	assert.Equal(t, apperrors.KindInfrastructure, apperrors.KindOf(err))

	assert.Equal(t, 1, env.availability.reserveCalls)
	assert.Equal(t, 1, env.availability.releaseCalls)
	assert.Empty(t, env.events.events)
	assert.Empty(t, env.publisher.messages)
	assert.Equal(t, 1, env.locker.lastLease.releases)
}

func TestCreateReleaseFailureKeepsOriginalError(t *testing.T) {
	env := newTestEnv(t)
	env.store.createErr = errors.New("connection reset")
	env.availability.releaseErr = errors.New("availability down")

	_, err := env.service.Create(context.Background(), createRequest(), "")

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindInfrastructure, appErr.Kind())
	assert.Equal(t, "failed to create booking", appErr.Message())
}

func TestCreateScheduledAtBounds(t *testing.T) {
	tests := []struct {
		name        string
		scheduledAt time.Time
		wantErr     bool
	}{
		{"at slot start", testSlotStart, false},
		{"inside the slot", testSlotStart.Add(30 * time.Minute), false},
		{"before slot start", testSlotStart.Add(-time.Minute), true},
		{"exactly at slot end", testSlotStart.Add(time.Hour), true},
		{"after slot end", testSlotStart.Add(2 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := createRequest()
			req.ScheduledAt = tt.scheduledAt

			_, err := env.service.Create(context.Background(), req, "")
			if tt.wantErr {
				assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
				assert.Equal(t, 0, env.availability.reserveCalls)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateWorkerDoesNotOfferService(t *testing.T) {
	env := newTestEnv(t)
	req := createRequest()
	req.ServiceType = "gardening"

	_, err := env.service.Create(context.Background(), req, "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Equal(t, 0, env.availability.reserveCalls)
}

func TestConcurrentCreatesSameSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.Create(ctx, createRequest(), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.KindOf(err) == apperrors.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Whichever way the two interleave, exactly one booking wins the slot.
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, env.store.bookings, 1)
	assert.True(t, env.availability.reserved)
}

func seedBooking(t *testing.T, env *testEnv, status lifecycle.Status) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ClientID:        "client-1",
		WorkerID:        "worker-1",
		SlotID:          "slot-1",
		ScheduledAt:     testSlotStart.Add(15 * time.Minute),
		DurationMinutes: 30,
		ServiceType:     "plumbing",
		Status:          status,
	}
	require.NoError(t, env.store.Create(context.Background(), booking))
	return booking
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()

	change, err := env.service.UpdateStatus(ctx, booking.ID,
		&models.UpdateBookingStatusRequest{Status: "pending_approval"},
		models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusPendingApproval, change.Status)
	assert.Equal(t, lifecycle.StatusRequested, change.PreviousStatus)

	require.Len(t, env.events.events, 1)
	assert.Equal(t, "BookingPendingApproval", env.events.events[0].EventType)

	require.Len(t, env.publisher.messages, 1)
	assert.Equal(t, models.SubjectBookingStatusChanged, env.publisher.messages[0].subject)
	payload, ok := env.publisher.messages[0].data.(models.BookingStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "requested", payload.PreviousStatus)
	assert.Equal(t, "pending_approval", payload.NewStatus)

	assert.Equal(t, 1, env.cache.invalidations)
}

func TestUpdateStatusNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.UpdateStatus(context.Background(), "missing",
		&models.UpdateBookingStatusRequest{Status: "pending_approval"},
		models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUpdateStatusOutsider(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)

	// The target is also an invalid transition; an outsider must still get
	// the authorization error, not a hint about the state machine.
	_, err := env.service.UpdateStatus(context.Background(), booking.ID,
		&models.UpdateBookingStatusRequest{Status: "completed"},
		models.Actor{ID: "someone-else", Role: lifecycle.RoleWorker})
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)

	_, err := env.service.UpdateStatus(context.Background(), booking.ID,
		&models.UpdateBookingStatusRequest{Status: "completed"},
		models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
	assert.Empty(t, env.events.events)
	assert.Empty(t, env.publisher.messages)
}

func TestUpdateStatusWrongRole(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusPendingApproval)

	// pending_approval -> accepted is a legal transition, but only for the
	// worker; the client is a participant yet not permitted.
	_, err := env.service.UpdateStatus(context.Background(), booking.ID,
		&models.UpdateBookingStatusRequest{Status: "accepted"},
		models.Actor{ID: "client-1", Role: lifecycle.RoleClient})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestUpdateStatusCancellationReason(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()
	actor := models.Actor{ID: "client-1", Role: lifecycle.RoleClient}

	_, err := env.service.UpdateStatus(ctx, booking.ID,
		&models.UpdateBookingStatusRequest{Status: "cancelled_by_client"}, actor)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	change, err := env.service.UpdateStatus(ctx, booking.ID,
		&models.UpdateBookingStatusRequest{
			Status:             "cancelled_by_client",
			CancellationReason: "found another provider",
		}, actor)
	require.NoError(t, err)
	require.NotNil(t, change.CancellationReason)
	assert.Equal(t, "found another provider", *change.CancellationReason)
}

// staleReadStore holds every GetByID until all expected readers have read,
// so racing transitions proceed from the same pre-state.
type staleReadStore struct {
	*fakeBookingStore
	reads sync.WaitGroup
}

func (s *staleReadStore) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.fakeBookingStore.GetByID(ctx, id)
	s.reads.Done()
	s.reads.Wait()
	return booking, err
}

func TestConcurrentTransitionsSameBooking(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusInProgress)

	store := &staleReadStore{fakeBookingStore: env.store}
	store.reads.Add(2)
	svc := NewBookingService(Deps{
		Bookings:     store,
		Events:       env.events,
		Locker:       env.locker,
		Cache:        env.cache,
		Availability: env.availability,
		Workers:      env.workers,
		Publisher:    env.publisher,
	})

	type outcome struct {
		target string
		err    error
	}
	results := make(chan outcome, 2)
	for _, target := range []string{"completed", "cancelled_by_worker"} {
		target := target
		go func() {
			_, err := svc.UpdateStatus(context.Background(), booking.ID,
				&models.UpdateBookingStatusRequest{Status: target, CancellationReason: "client unreachable"},
				models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
			results <- outcome{target: target, err: err}
		}()
	}

	// Both read in_progress and pass every check; only one commit may win.
	var winner string
	var conflicts int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err == nil {
			winner = r.target
		} else {
			assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(r.err))
			conflicts++
		}
	}
	require.NotEmpty(t, winner)
	assert.Equal(t, 1, conflicts)

	// The terminal state the winner wrote is never overwritten.
	final, err := env.store.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Status(winner), final.Status)
	assert.Len(t, env.events.events, 1)
	assert.Len(t, env.publisher.messages, 1)
}

func TestListEmbedsRecentEvents(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()
	worker := models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker}

	for _, status := range []string{"pending_approval", "accepted", "in_progress"} {
		_, err := env.service.UpdateStatus(ctx, booking.ID,
			&models.UpdateBookingStatusRequest{Status: status}, worker)
		require.NoError(t, err)
	}

	result, err := env.service.List(ctx, "client-1", models.ListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Items[0].Events, 3)
	assert.Equal(t, "BookingInProgress", result.Items[0].Events[0].EventType)
}

func TestListServesFromCacheUntilInvalidated(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()

	first, err := env.service.List(ctx, "client-1", models.ListQuery{})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	// Mutate the store behind the cache's back; the cached page still wins.
	_, err = env.store.UpdateStatus(ctx, booking.ID, lifecycle.StatusRequested, lifecycle.StatusPendingApproval, nil)
	require.NoError(t, err)

	second, err := env.service.List(ctx, "client-1", models.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A transition through the service invalidates, so the next listing
	// reflects the new status.
	_, err = env.service.UpdateStatus(ctx, booking.ID,
		&models.UpdateBookingStatusRequest{Status: "accepted"},
		models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
	require.NoError(t, err)

	third, err := env.service.List(ctx, "client-1", models.ListQuery{})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Equal(t, lifecycle.StatusAccepted, third.Items[0].Status)
}

func TestListLimitBounds(t *testing.T) {
	env := newTestEnv(t)
	seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()

	result, err := env.service.List(ctx, "client-1", models.ListQuery{Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Limit)

	result, err = env.service.List(ctx, "client-1", models.ListQuery{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Limit)
}

func TestListRoleAndStatusFilters(t *testing.T) {
	env := newTestEnv(t)
	seedBooking(t, env, lifecycle.StatusRequested)
	seedBooking(t, env, lifecycle.StatusAccepted)
	ctx := context.Background()

	byStatus, err := env.service.List(ctx, "client-1", models.ListQuery{Status: "accepted"})
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, lifecycle.StatusAccepted, byStatus.Items[0].Status)

	asWorker, err := env.service.List(ctx, "worker-1", models.ListQuery{Role: "worker"})
	require.NoError(t, err)
	assert.Len(t, asWorker.Items, 2)

	stranger, err := env.service.List(ctx, "nobody", models.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, stranger.Items)
	assert.Equal(t, int64(0), stranger.Total)
}

func TestGetAttachesEvents(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()

	_, err := env.service.UpdateStatus(ctx, booking.ID,
		&models.UpdateBookingStatusRequest{Status: "pending_approval"},
		models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
	require.NoError(t, err)

	got, err := env.service.Get(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "BookingPendingApproval", got.Events[0].EventType)

	_, err = env.service.Get(ctx, "missing")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	ctx := context.Background()
	worker := models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker}

	for _, status := range []string{"pending_approval", "accepted", "in_progress"} {
		_, err := env.service.UpdateStatus(ctx, booking.ID,
			&models.UpdateBookingStatusRequest{Status: status}, worker)
		require.NoError(t, err)
	}

	events, err := env.service.ListEvents(ctx, booking.ID, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, "BookingInProgress", events[0].EventType)
	assert.Equal(t, "BookingAccepted", events[1].EventType)

	_, err = env.service.ListEvents(ctx, "missing", 10)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestValidateAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	at := testSlotStart

	result, err := env.service.ValidateAvailability(ctx, &models.ValidateBookingRequest{
		WorkerID:        "worker-1",
		ScheduledAt:     at,
		DurationMinutes: 90,
	}, "")
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, at, env.availability.checkedStart)
	assert.Equal(t, at.Add(90*time.Minute), env.availability.checkedEnd)

	// Duration defaults to an hour when omitted.
	_, err = env.service.ValidateAvailability(ctx, &models.ValidateBookingRequest{
		WorkerID:    "worker-1",
		ScheduledAt: at,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, at.Add(60*time.Minute), env.availability.checkedEnd)
}

func TestEventWriteFailureDoesNotFailTransition(t *testing.T) {
	env := newTestEnv(t)
	booking := seedBooking(t, env, lifecycle.StatusRequested)
	env.events.createErr = errors.New("events table unavailable")

	change, err := env.service.UpdateStatus(context.Background(), booking.ID,
		&models.UpdateBookingStatusRequest{Status: "pending_approval"},
		models.Actor{ID: "worker-1", Role: lifecycle.RoleWorker})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPendingApproval, change.Status)
}

func TestPublishFailureDoesNotFailCreate(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("streaming server offline")

	booking, err := env.service.Create(context.Background(), createRequest(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
}
