package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// MemoryRepository is an in-memory Repository. It backs tests and lets
// the server run without a database. A single mutex spans the combined
// session-write-plus-event-append, so the atomicity and uniqueness
// guarantees match the Postgres implementation.
type MemoryRepository struct {
	mu            sync.Mutex
	sessionsByID  map[string]*domain.TimeSession
	sessionsByDay map[string]string // employeeID+"\x00"+dayKey -> session ID
	events        []*domain.TimeEvent
	eventsByKey   map[string]*domain.TimeEvent
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessionsByID:  make(map[string]*domain.TimeSession),
		sessionsByDay: make(map[string]string),
		eventsByKey:   make(map[string]*domain.TimeEvent),
	}
}

func dayIndexKey(employeeID, dayKey string) string {
	return employeeID + "\x00" + dayKey
}

func (r *MemoryRepository) GetSessionByEmployeeAndDay(ctx context.Context, employeeID, dayKey string) (*domain.TimeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessionsByDay[dayIndexKey(employeeID, dayKey)]
	if !ok {
		return nil, nil
	}
	return r.sessionsByID[id].Clone(), nil
}

func (r *MemoryRepository) GetSessionByID(ctx context.Context, id string) (*domain.TimeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionsByID[id].Clone(), nil
}

func (r *MemoryRepository) ListSessionsByEmployeeAndDayRange(ctx context.Context, employeeID, fromDay, toDay string) ([]*domain.TimeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TimeSession
	for _, s := range r.sessionsByID {
		if s.EmployeeID == employeeID && s.DayKey >= fromDay && s.DayKey <= toDay {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayKey > out[j].DayKey })
	return out, nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context, f SessionFilter) ([]*domain.TimeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TimeSession
	for _, s := range r.sessionsByID {
		if f.DayKey != "" && s.DayKey != f.DayKey {
			continue
		}
		if f.EmployeeID != "" && s.EmployeeID != f.EmployeeID {
			continue
		}
		if f.State != "" && s.State != f.State {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayKey != out[j].DayKey {
			return out[i].DayKey > out[j].DayKey
		}
		return out[i].ClockInAt.After(out[j].ClockInAt)
	})
	return paginateSessions(out, f.Limit, f.Offset), nil
}

func (r *MemoryRepository) GetEventByIdempotencyKey(ctx context.Context, key string) (*domain.TimeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.eventsByKey[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *MemoryRepository) ListEventsBySession(ctx context.Context, sessionID string) ([]*domain.TimeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TimeEvent
	for _, e := range r.events {
		if e.SessionID == sessionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListEvents(ctx context.Context, f EventFilter) ([]*domain.TimeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TimeEvent
	for _, e := range r.events {
		if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
			continue
		}
		if !f.From.IsZero() && e.TimestampUTC.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !e.TimestampUTC.Before(f.To) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampUTC.After(out[j].TimestampUTC) })
	return paginateEvents(out, f.Limit, f.Offset), nil
}

func (r *MemoryRepository) CreateSessionWithEvent(ctx context.Context, s *domain.TimeSession, e *domain.TimeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dayIndexKey(s.EmployeeID, s.DayKey)
	if _, exists := r.sessionsByDay[key]; exists {
		return ErrSessionExists
	}
	if _, exists := r.eventsByKey[e.IdempotencyKey]; exists {
		return ErrDuplicateEvent
	}
	r.sessionsByDay[key] = s.ID
	r.sessionsByID[s.ID] = s.Clone()
	r.appendEvent(e)
	return nil
}

func (r *MemoryRepository) UpdateSessionWithEvent(ctx context.Context, s *domain.TimeSession, expected domain.SessionState, e *domain.TimeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessionsByID[s.ID]
	if !ok || stored.State != expected {
		return ErrStaleState
	}
	if _, exists := r.eventsByKey[e.IdempotencyKey]; exists {
		return ErrDuplicateEvent
	}
	r.sessionsByID[s.ID] = s.Clone()
	r.appendEvent(e)
	return nil
}

func (r *MemoryRepository) CorrectSessionWithEvent(ctx context.Context, s *domain.TimeSession, e *domain.TimeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessionsByID[s.ID]; !ok {
		return ErrStaleState
	}
	if _, exists := r.eventsByKey[e.IdempotencyKey]; exists {
		return ErrDuplicateEvent
	}
	r.sessionsByID[s.ID] = s.Clone()
	r.appendEvent(e)
	return nil
}

func (r *MemoryRepository) appendEvent(e *domain.TimeEvent) {
	cp := *e
	r.events = append(r.events, &cp)
	r.eventsByKey[cp.IdempotencyKey] = &cp
}

func paginateSessions(in []*domain.TimeSession, limit, offset int32) []*domain.TimeSession {
	if offset > 0 {
		if int(offset) >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && int(limit) < len(in) {
		in = in[:limit]
	}
	return in
}

func paginateEvents(in []*domain.TimeEvent, limit, offset int32) []*domain.TimeEvent {
	if offset > 0 {
		if int(offset) >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && int(limit) < len(in) {
		in = in[:limit]
	}
	return in
}
