package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/carlsburger/GastroCore-sub000/internal/security"
	"github.com/carlsburger/GastroCore-sub000/internal/server/middleware"
)

func ctxWith(role security.Role) context.Context {
	return middleware.WithPrincipal(context.Background(), &security.Principal{
		UserID: "user-1",
		Email:  "user@example.com",
		Role:   role,
	})
}

func TestRequirePrincipal_Missing(t *testing.T) {
	if _, err := RequirePrincipal(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireAdmin_Admin(t *testing.T) {
	p, err := RequireAdmin(ctxWith(security.RoleAdmin))
	if err != nil {
		t.Fatalf("RequireAdmin: %v", err)
	}
	if p.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", p.UserID, "user-1")
	}
}

func TestRequireAdmin_Manager(t *testing.T) {
	if _, err := RequireAdmin(ctxWith(security.RoleManager)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRequireManager_Manager(t *testing.T) {
	if _, err := RequireManager(ctxWith(security.RoleManager)); err != nil {
		t.Fatalf("RequireManager: %v", err)
	}
}

func TestRequireManager_Admin(t *testing.T) {
	if _, err := RequireManager(ctxWith(security.RoleAdmin)); err != nil {
		t.Fatalf("RequireManager: %v", err)
	}
}

func TestRequireManager_Employee(t *testing.T) {
	if _, err := RequireManager(ctxWith(security.RoleEmployee)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
