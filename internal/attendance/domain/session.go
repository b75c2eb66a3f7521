package domain

import (
	"fmt"
	"time"
)

// SessionState is the state of an open or closed attendance session.
// The off state (employee not clocked in today) is the absence of a
// session row and is never persisted as a state value.
type SessionState string

const (
	StateWorking SessionState = "WORKING"
	StateBreak   SessionState = "BREAK"
	StateClosed  SessionState = "CLOSED"
)

// ParseSessionState maps a persisted state string to a SessionState.
// The mapping is exhaustive; unknown values are rejected.
func ParseSessionState(s string) (SessionState, error) {
	switch SessionState(s) {
	case StateWorking, StateBreak, StateClosed:
		return SessionState(s), nil
	}
	return "", fmt.Errorf("unknown session state %q", s)
}

// LinkMethod records how a session got associated with a shift.
type LinkMethod string

const (
	LinkAuto   LinkMethod = "AUTO"
	LinkManual LinkMethod = "MANUAL"
	LinkNone   LinkMethod = "NONE"
)

// BreakEntry is one break taken during a session. EndAt is nil while the
// break is open; Duration is set when the break is closed.
type BreakEntry struct {
	StartAt  time.Time     `json:"start_at"`
	EndAt    *time.Time    `json:"end_at,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// TimeSession is the single mutable attendance record for one employee
// on one calendar day. DayKey is the local business date, fixed at
// clock-in and never recomputed: an overnight session that closes on the
// next calendar date stays filed under the day it started.
type TimeSession struct {
	ID         string
	EmployeeID string
	DayKey     string // local date, YYYY-MM-DD
	State      SessionState
	ShiftID    string // empty when not linked; weak reference only
	LinkMethod LinkMethod
	ClockInAt  time.Time  // UTC
	ClockOutAt *time.Time // UTC, nil until closed
	Breaks     []BreakEntry
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OpenBreak returns the index of the open break entry, or -1 when every
// break is closed. At most one entry may be open at any time.
func (s *TimeSession) OpenBreak() int {
	for i := range s.Breaks {
		if s.Breaks[i].EndAt == nil {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the session. Repositories and the engine
// hand out clones so callers never alias stored break slices.
func (s *TimeSession) Clone() *TimeSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.ClockOutAt != nil {
		t := *s.ClockOutAt
		out.ClockOutAt = &t
	}
	out.Breaks = make([]BreakEntry, len(s.Breaks))
	for i, b := range s.Breaks {
		out.Breaks[i] = b
		if b.EndAt != nil {
			t := *b.EndAt
			out.Breaks[i].EndAt = &t
		}
	}
	return &out
}

// DayKeyFor returns the calendar date of instant in the business
// timezone, formatted as a day key.
func DayKeyFor(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format("2006-01-02")
}
