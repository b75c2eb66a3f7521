package domain

import "time"

// PublicationStatus is the rostering state of a shift. Only published
// shifts are visible to the attendance engine.
type PublicationStatus string

const (
	StatusDraft     PublicationStatus = "DRAFT"
	StatusPublished PublicationStatus = "PUBLISHED"
)

// Shift is one scheduled work period for an employee. StartTimeUTC and
// EndTimeUTC are absolute instants; an overnight shift has its end on the
// following calendar date.
type Shift struct {
	ID           string
	EmployeeID   string
	StartTimeUTC time.Time
	EndTimeUTC   time.Time
	Status       PublicationStatus
	Role         string // position worked, e.g. "bar", "kitchen"; informational
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
