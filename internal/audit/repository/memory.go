package repository

import (
	"context"
	"sync"

	"github.com/carlsburger/GastroCore-sub000/internal/audit/domain"
)

// MemoryRepository is an in-memory audit log for tests and for running
// without a database.
type MemoryRepository struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *MemoryRepository) ListByEmployee(ctx context.Context, employeeID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].EmployeeID == employeeID {
			cp := *r.logs[i]
			out = append(out, &cp)
		}
	}
	if offset > 0 {
		if int(offset) >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// All returns every recorded entry in append order. Test helper.
func (r *MemoryRepository) All() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditLog, len(r.logs))
	copy(out, r.logs)
	return out
}
