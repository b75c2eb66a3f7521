package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// Sentinel errors for write conflicts; the engine maps them to the
// user-visible taxonomy.
var (
	// ErrSessionExists is returned by CreateSessionWithEvent when a session
	// already exists for the employee and day. Exactly one of two
	// concurrent clock-ins observes this.
	ErrSessionExists = errors.New("session already exists for employee and day")
	// ErrStaleState is returned by UpdateSessionWithEvent when the stored
	// state no longer equals the expected prior state at write time.
	ErrStaleState = errors.New("session state changed concurrently")
	// ErrDuplicateEvent is returned when the event's idempotency key is
	// already recorded. The caller re-reads the original event.
	ErrDuplicateEvent = errors.New("idempotency key already recorded")
)

// SessionFilter narrows privileged session listings.
type SessionFilter struct {
	DayKey     string
	EmployeeID string
	State      domain.SessionState
	Limit      int32
	Offset     int32
}

// EventFilter narrows raw event listings for audit.
type EventFilter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
	Limit      int32
	Offset     int32
}

// Repository is the session store plus the append-only event log. The
// two writes of a transition are exposed only as combined operations so
// no code path can record an event without the matching state change.
type Repository interface {
	GetSessionByEmployeeAndDay(ctx context.Context, employeeID, dayKey string) (*domain.TimeSession, error)
	GetSessionByID(ctx context.Context, id string) (*domain.TimeSession, error)
	ListSessionsByEmployeeAndDayRange(ctx context.Context, employeeID, fromDay, toDay string) ([]*domain.TimeSession, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]*domain.TimeSession, error)

	GetEventByIdempotencyKey(ctx context.Context, key string) (*domain.TimeEvent, error)
	ListEventsBySession(ctx context.Context, sessionID string) ([]*domain.TimeEvent, error)
	ListEvents(ctx context.Context, f EventFilter) ([]*domain.TimeEvent, error)

	// CreateSessionWithEvent atomically inserts the session and appends the
	// event. Fails with ErrSessionExists when a row for (employee, day)
	// exists, ErrDuplicateEvent when the idempotency key is taken.
	CreateSessionWithEvent(ctx context.Context, s *domain.TimeSession, e *domain.TimeEvent) error
	// UpdateSessionWithEvent atomically writes the session and appends the
	// event, but only if the stored state still equals expected. Fails with
	// ErrStaleState on a guard miss, ErrDuplicateEvent on a key collision.
	UpdateSessionWithEvent(ctx context.Context, s *domain.TimeSession, expected domain.SessionState, e *domain.TimeEvent) error
	// CorrectSessionWithEvent atomically overwrites the session and appends
	// the correction event without a state guard. Admin corrections only.
	CorrectSessionWithEvent(ctx context.Context, s *domain.TimeSession, e *domain.TimeEvent) error
}
