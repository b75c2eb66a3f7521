package repository

import (
	"context"
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/shift/domain"
)

// Repository is the read-only view of the shift registry consumed by the
// attendance core. Rostering and shift templates live elsewhere.
type Repository interface {
	// ListPublishedByEmployeeBetween returns the employee's published
	// shifts whose start falls in [from, to).
	ListPublishedByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*domain.Shift, error)
	GetByID(ctx context.Context, id string) (*domain.Shift, error)
}
