package repository

import (
	"context"

	"github.com/carlsburger/GastroCore-sub000/internal/employee/domain"
)

// Repository is the read-only employee directory view consumed by the
// attendance core. Directory management lives elsewhere.
type Repository interface {
	// ResolveByPrincipal maps an authenticated principal to an active
	// employee: first by direct user link, then by email match. Returns
	// (nil, nil) when the principal has no employee profile; that is a
	// reported condition for the caller, not an error.
	ResolveByPrincipal(ctx context.Context, userID, email string) (*domain.Employee, error)
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
}
