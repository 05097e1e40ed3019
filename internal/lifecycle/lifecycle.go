package lifecycle

import "fmt"

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusRequested         Status = "requested"
	StatusPendingApproval   Status = "pending_approval"
	StatusAccepted          Status = "accepted"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusCancelledByClient Status = "cancelled_by_client"
	StatusCancelledByWorker Status = "cancelled_by_worker"
)

// Role identifies which side of a booking the acting user is on.
type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
)

// Transitions maps each status to the set of statuses it may move to.
// Terminal statuses map to an empty list.
var Transitions = map[Status][]Status{
	StatusRequested:         {StatusPendingApproval, StatusCancelledByClient},
	StatusPendingApproval:   {StatusAccepted, StatusCancelledByClient},
	StatusAccepted:          {StatusInProgress, StatusCancelledByWorker},
	StatusInProgress:        {StatusCompleted, StatusCancelledByWorker},
	StatusCompleted:         {},
	StatusCancelledByClient: {},
	StatusCancelledByWorker: {},
}

// RolePermissions is the configuration table pairing each role with the
// target statuses it may request. The client can only cancel their own
// booking; the worker acknowledges and advances the booking through its
// active states, or cancels it.
var RolePermissions = map[Role]map[Status]bool{
	RoleClient: {
		StatusCancelledByClient: true,
	},
	RoleWorker: {
		StatusPendingApproval:   true,
		StatusAccepted:          true,
		StatusInProgress:        true,
		StatusCompleted:         true,
		StatusCancelledByWorker: true,
	},
}

// eventTypes is the explicit status -> audit event type table. Every status
// must have an entry; init panics otherwise so a missing mapping is caught
// at startup instead of silently producing a wrong event name.
var eventTypes = map[Status]string{
	StatusRequested:         "BookingRequested",
	StatusPendingApproval:   "BookingPendingApproval",
	StatusAccepted:          "BookingAccepted",
	StatusInProgress:        "BookingInProgress",
	StatusCompleted:         "BookingCompleted",
	StatusCancelledByClient: "BookingCancelledByClient",
	StatusCancelledByWorker: "BookingCancelledByWorker",
}

func init() {
	for status := range Transitions {
		if _, ok := eventTypes[status]; !ok {
			panic(fmt.Sprintf("lifecycle: no event type mapped for status %q", status))
		}
	}
}

// Valid reports whether s is one of the defined booking statuses.
func (s Status) Valid() bool {
	_, ok := Transitions[s]
	return ok
}

// IsCancellation reports whether s is one of the cancellation statuses.
func IsCancellation(s Status) bool {
	return s == StatusCancelledByClient || s == StatusCancelledByWorker
}

// IsValidTransition reports whether the state machine allows moving from
// current to next.
func IsValidTransition(current, next Status) bool {
	for _, allowed := range Transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanTransition reports whether the acting user may request the transition
// to next on a booking between clientID and workerID. The role must be
// permitted to target next per RolePermissions, and the actor must be the
// matching participant on the booking.
func CanTransition(role Role, actorID, clientID, workerID string, next Status) bool {
	targets, ok := RolePermissions[role]
	if !ok || !targets[next] {
		return false
	}
	switch role {
	case RoleClient:
		return actorID == clientID
	case RoleWorker:
		return actorID == workerID
	}
	return false
}

// EventTypeFor returns the audit event type recorded when a booking enters
// the given status. An unmapped status is a configuration bug and is
// reported as an error, never papered over with a default.
func EventTypeFor(status Status) (string, error) {
	eventType, ok := eventTypes[status]
	if !ok {
		return "", fmt.Errorf("no event type mapped for status %q", status)
	}
	return eventType, nil
}
