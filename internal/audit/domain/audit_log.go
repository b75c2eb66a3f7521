package domain

import "time"

// AuditLog is one human-readable audit record of an engine mutation.
// It is independent of the internal event log: events are the replay
// source of truth, audit rows are for people.
type AuditLog struct {
	ID         string
	EmployeeID string
	ActorID    string // authenticated principal who caused the mutation
	Action     string // e.g. clock_in, break_start, admin_correction
	Resource   string // e.g. time_session
	Summary    string // before/after summary
	Metadata   string // JSON, optional
	CreatedAt  time.Time
}
