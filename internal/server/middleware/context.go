package middleware

import (
	"context"

	"github.com/carlsburger/GastroCore-sub000/internal/security"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// WithPrincipal returns a context with the authenticated principal set.
// Handlers and the RBAC helpers read it via GetPrincipal.
func WithPrincipal(ctx context.Context, p *security.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the principal from context and true if set;
// otherwise nil, false.
func GetPrincipal(ctx context.Context) (*security.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*security.Principal)
	return p, ok
}

// ActorID returns the principal's user id, or "" when unauthenticated.
// Shaped to plug into the audit recorder's ActorExtractor.
func ActorID(ctx context.Context) string {
	if p, ok := GetPrincipal(ctx); ok {
		return p.UserID
	}
	return ""
}
