package rbac

import (
	"context"
	"errors"

	"github.com/carlsburger/GastroCore-sub000/internal/security"
	"github.com/carlsburger/GastroCore-sub000/internal/server/middleware"
)

var (
	// ErrUnauthenticated means no principal is attached to the context.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller's role does not grant the operation.
	ErrForbidden = errors.New("insufficient role")
)

// RequirePrincipal ensures the caller is authenticated.
func RequirePrincipal(ctx context.Context) (*security.Principal, error) {
	p, ok := middleware.GetPrincipal(ctx)
	if !ok || p == nil || p.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return p, nil
}

// RequireManager ensures the caller holds role manager or admin.
// Returns the principal on success.
func RequireManager(ctx context.Context) (*security.Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != security.RoleManager && p.Role != security.RoleAdmin {
		return nil, ErrForbidden
	}
	return p, nil
}

// RequireAdmin ensures the caller holds role admin. Corrections and
// other mutating back-office operations go through this gate.
func RequireAdmin(ctx context.Context) (*security.Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != security.RoleAdmin {
		return nil, ErrForbidden
	}
	return p, nil
}
