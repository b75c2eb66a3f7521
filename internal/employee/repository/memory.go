package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/carlsburger/GastroCore-sub000/internal/employee/domain"
)

// MemoryRepository is an in-memory employee directory for tests and for
// running without a database.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Employee
}

// NewMemoryRepository returns an empty in-memory employee repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Employee)}
}

// Put stores or replaces an employee.
func (r *MemoryRepository) Put(e *domain.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.m[e.ID] = &cp
}

func (r *MemoryRepository) ResolveByPrincipal(ctx context.Context, userID, email string) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if userID != "" {
		for _, e := range r.m {
			if e.Active && e.UserID == userID {
				cp := *e
				return &cp, nil
			}
		}
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email != "" {
		for _, e := range r.m {
			if e.Active && strings.EqualFold(e.Email, email) {
				cp := *e
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}
