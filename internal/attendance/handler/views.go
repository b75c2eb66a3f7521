package handler

import (
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/engine"
)

// BreakView is one break as rendered on the wire.
type BreakView struct {
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	DurationSec int64      `json:"duration_seconds"`
}

// SessionView is the wire shape of a session.
type SessionView struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employee_id"`
	DayKey     string      `json:"day_key"`
	State      string      `json:"state"`
	ShiftID    string      `json:"shift_id,omitempty"`
	LinkMethod string      `json:"link_method"`
	ClockInAt  time.Time   `json:"clock_in_at"`
	ClockOutAt *time.Time  `json:"clock_out_at,omitempty"`
	Breaks     []BreakView `json:"breaks"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TotalsView carries computed work and break totals in seconds.
type TotalsView struct {
	TotalWorkSeconds  int64 `json:"total_work_seconds"`
	TotalBreakSeconds int64 `json:"total_break_seconds"`
	NetWorkSeconds    int64 `json:"net_work_seconds"`
}

// EventView is the wire shape of one append-only event.
type EventView struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	EmployeeID     string    `json:"employee_id"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp_utc"`
	Source         string    `json:"source"`
	IdempotencyKey string    `json:"idempotency_key"`
	Metadata       string    `json:"metadata,omitempty"`
}

// NewSessionView renders a session for transport.
func NewSessionView(s *domain.TimeSession) *SessionView {
	if s == nil {
		return nil
	}
	breaks := make([]BreakView, len(s.Breaks))
	for i, b := range s.Breaks {
		breaks[i] = BreakView{
			StartAt:     b.StartAt,
			EndAt:       b.EndAt,
			DurationSec: int64(b.Duration / time.Second),
		}
	}
	return &SessionView{
		ID:         s.ID,
		EmployeeID: s.EmployeeID,
		DayKey:     s.DayKey,
		State:      string(s.State),
		ShiftID:    s.ShiftID,
		LinkMethod: string(s.LinkMethod),
		ClockInAt:  s.ClockInAt,
		ClockOutAt: s.ClockOutAt,
		Breaks:     breaks,
		UpdatedAt:  s.UpdatedAt,
	}
}

// NewTotalsView renders computed totals for transport.
func NewTotalsView(t engine.Totals) TotalsView {
	return TotalsView{
		TotalWorkSeconds:  t.TotalWorkSeconds,
		TotalBreakSeconds: t.TotalBreakSeconds,
		NetWorkSeconds:    t.NetWorkSeconds,
	}
}

// NewEventView renders an event for transport.
func NewEventView(e *domain.TimeEvent) *EventView {
	if e == nil {
		return nil
	}
	return &EventView{
		ID:             e.ID,
		SessionID:      e.SessionID,
		EmployeeID:     e.EmployeeID,
		Type:           string(e.Type),
		Timestamp:      e.TimestampUTC,
		Source:         string(e.Source),
		IdempotencyKey: e.IdempotencyKey,
		Metadata:       e.Metadata,
	}
}

// MutationView is the response body of every clock and break mutation.
type MutationView struct {
	Session   *SessionView `json:"session"`
	Totals    TotalsView   `json:"totals"`
	Duplicate bool         `json:"duplicate"`
}

// NewMutationView renders an engine mutation result for transport.
func NewMutationView(r *engine.Result) MutationView {
	return MutationView{
		Session:   NewSessionView(r.Session),
		Totals:    NewTotalsView(r.Totals),
		Duplicate: r.Duplicate,
	}
}

// StatusEntryView is one session with totals, used by status, history
// and the admin listing.
type StatusEntryView struct {
	Session *SessionView `json:"session"`
	Totals  TotalsView   `json:"totals"`
}

// NewStatusEntryView renders one history or listing entry.
func NewStatusEntryView(s *engine.Status) StatusEntryView {
	return StatusEntryView{
		Session: NewSessionView(s.Session),
		Totals:  NewTotalsView(s.Totals),
	}
}
