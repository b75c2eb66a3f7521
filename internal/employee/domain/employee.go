package domain

import "time"

// Employee is one staff-directory entry. UserID links the directory
// entry to an authentication principal; it is empty for staff who have
// no account yet, in which case resolution falls back to email matching.
type Employee struct {
	ID        string
	UserID    string
	Email     string
	FullName  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
