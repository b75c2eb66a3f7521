package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/shift/domain"
)

// MemoryRepository is an in-memory shift registry for tests and for
// running without a database.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Shift
}

// NewMemoryRepository returns an empty in-memory shift repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Shift)}
}

// Put stores or replaces a shift.
func (r *MemoryRepository) Put(s *domain.Shift) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
}

func (r *MemoryRepository) ListPublishedByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*domain.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Shift
	for _, s := range r.m {
		if s.EmployeeID != employeeID || s.Status != domain.StatusPublished {
			continue
		}
		if s.StartTimeUTC.Before(from) || !s.StartTimeUTC.Before(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTimeUTC.Before(out[j].StartTimeUTC) })
	return out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}
