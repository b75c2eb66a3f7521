package domain

import (
	"fmt"
	"time"
)

// EventType identifies the transition an event records.
type EventType string

const (
	EventClockIn    EventType = "CLOCK_IN"
	EventBreakStart EventType = "BREAK_START"
	EventBreakEnd   EventType = "BREAK_END"
	EventClockOut   EventType = "CLOCK_OUT"
	// EventCorrection records an admin override. It is not a state-machine
	// transition; the touched fields and the reason live in Metadata.
	EventCorrection EventType = "CORRECTION"
)

// ParseEventType maps a persisted event type string to an EventType.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventClockIn, EventBreakStart, EventBreakEnd, EventClockOut, EventCorrection:
		return EventType(s), nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Source tags where a mutation came from.
type Source string

const (
	SourceApp             Source = "APP"
	SourceTerminal        Source = "TERMINAL"
	SourceAdminCorrection Source = "ADMIN_CORRECTION"
)

// ParseSource maps a source string to a Source. Empty defaults to APP.
func ParseSource(s string) (Source, error) {
	if s == "" {
		return SourceApp, nil
	}
	switch Source(s) {
	case SourceApp, SourceTerminal, SourceAdminCorrection:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// TimeEvent is one append-only record of an applied state transition.
// Events are created once and never mutated or deleted; together they
// form the replay log and audit trail for a session. IdempotencyKey is
// unique across all events and is what makes retried mutations collapse.
type TimeEvent struct {
	ID             string
	SessionID      string
	EmployeeID     string
	Type           EventType
	TimestampUTC   time.Time
	Source         Source
	IdempotencyKey string
	Metadata       string // JSON, empty when the event carries none
	CreatedAt      time.Time
}
