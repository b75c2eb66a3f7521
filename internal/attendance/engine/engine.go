// Package engine implements the attendance state machine: it validates
// and applies clock-in, break, and clock-out transitions against the
// session store, using the append-only event log for idempotency and
// audit replay.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/repository"
	"github.com/carlsburger/GastroCore-sub000/internal/audit"
)

// minCorrectionReasonLen is the enforced minimum length of an admin
// correction reason after trimming.
const minCorrectionReasonLen = 10

// ShiftLinker resolves the shift a clock-in belongs to. Implemented by
// the shift linker; nil-safe fakes suffice in tests.
type ShiftLinker interface {
	Link(ctx context.Context, employeeID string, clockInAt time.Time) (string, domain.LinkMethod)
}

// Emitter publishes applied events to downstream consumers. Best-effort;
// implemented by the Kafka producer.
type Emitter interface {
	Emit(ctx context.Context, e *domain.TimeEvent) error
}

// Deps holds the engine's collaborators. Repo is required; the rest may
// be nil and degrade to no-ops.
type Deps struct {
	Repo     repository.Repository
	Linker   ShiftLinker
	Audit    audit.Recorder
	Emitter  Emitter
	Metrics  *Metrics
	Log      *logrus.Logger
	Location *time.Location  // business timezone for day keys
	Now      func() time.Time // override in tests; defaults to time.Now
}

// Engine applies attendance transitions. The unit of concurrency is one
// employee on one day key; requests for different employees or days
// never interact.
type Engine struct {
	repo    repository.Repository
	linker  ShiftLinker
	audit   audit.Recorder
	emitter Emitter
	metrics *Metrics
	log     *logrus.Logger
	loc     *time.Location
	now     func() time.Time
}

// New returns an Engine with the given dependencies.
func New(d Deps) *Engine {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{
		repo:    d.Repo,
		linker:  d.Linker,
		audit:   d.Audit,
		emitter: d.Emitter,
		metrics: d.Metrics,
		log:     d.Log,
		loc:     d.Location,
		now:     d.Now,
	}
}

// Result is the outcome of a mutation. Duplicate marks an idempotent
// replay: the original outcome returned unchanged, nothing re-applied.
type Result struct {
	Session   *domain.TimeSession
	Totals    Totals
	Duplicate bool
}

// ClockIn opens a session for the employee on today's day key. Fails
// with Conflict when a session for that day already exists; exactly one
// of two concurrent calls succeeds. On success the shift linker is
// consulted and a CLOCK_IN event is appended atomically with the row.
func (e *Engine) ClockIn(ctx context.Context, employeeID, idempotencyKey string, source domain.Source) (*Result, error) {
	now := e.now().UTC()
	key := idempotencyKey
	if key == "" {
		key = DeriveIdempotencyKey(employeeID, domain.EventClockIn, now)
	}
	if res, err := e.replayIfSeen(ctx, key, now); res != nil || err != nil {
		return res, err
	}

	dayKey := domain.DayKeyFor(now, e.loc)
	existing, err := e.repo.GetSessionByEmployeeAndDay(ctx, employeeID, dayKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		e.countConflict(ctx, domain.EventClockIn)
		return nil, domain.Conflict(fmt.Sprintf("already clocked in for %s; clock out first", dayKey))
	}

	shiftID, linkMethod := "", domain.LinkNone
	if e.linker != nil {
		shiftID, linkMethod = e.linker.Link(ctx, employeeID, now)
	}

	session := &domain.TimeSession{
		ID:         uuid.New().String(),
		EmployeeID: employeeID,
		DayKey:     dayKey,
		State:      domain.StateWorking,
		ShiftID:    shiftID,
		LinkMethod: linkMethod,
		ClockInAt:  now,
		Breaks:     []domain.BreakEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	event := e.newEvent(session, domain.EventClockIn, now, source, key, "")

	if err := e.repo.CreateSessionWithEvent(ctx, session, event); err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionExists):
			e.countConflict(ctx, domain.EventClockIn)
			return nil, domain.Conflict(fmt.Sprintf("already clocked in for %s; clock out first", dayKey))
		case errors.Is(err, repository.ErrDuplicateEvent):
			return e.replayRecorded(ctx, key, now)
		}
		return nil, err
	}

	e.afterApply(ctx, event, "clock_in",
		fmt.Sprintf("clocked in at %s, shift link %s", now.Format(time.RFC3339), linkMethod))
	return &Result{Session: session, Totals: ComputeTotals(session, now)}, nil
}

// BreakStart opens a break on the employee's current working session.
func (e *Engine) BreakStart(ctx context.Context, employeeID, idempotencyKey string, source domain.Source) (*Result, error) {
	now := e.now().UTC()
	key := idempotencyKey
	if key == "" {
		key = DeriveIdempotencyKey(employeeID, domain.EventBreakStart, now)
	}
	if res, err := e.replayIfSeen(ctx, key, now); res != nil || err != nil {
		return res, err
	}

	session, err := e.currentSession(ctx, employeeID, now)
	if err != nil {
		return nil, err
	}
	switch session.State {
	case domain.StateBreak:
		e.countConflict(ctx, domain.EventBreakStart)
		return nil, domain.Conflict("already on break")
	case domain.StateClosed:
		e.countConflict(ctx, domain.EventBreakStart)
		return nil, domain.Conflict("session is closed; cannot start a break")
	}

	updated := session.Clone()
	updated.Breaks = append(updated.Breaks, domain.BreakEntry{StartAt: now})
	updated.State = domain.StateBreak
	updated.UpdatedAt = now
	event := e.newEvent(updated, domain.EventBreakStart, now, source, key, "")

	if err := e.repo.UpdateSessionWithEvent(ctx, updated, domain.StateWorking, event); err != nil {
		return e.mapApplyErr(ctx, err, key, now, domain.EventBreakStart)
	}

	e.afterApply(ctx, event, "break_start",
		fmt.Sprintf("break started at %s", now.Format(time.RFC3339)))
	return &Result{Session: updated, Totals: ComputeTotals(updated, now)}, nil
}

// BreakEnd closes the open break and returns the session to working.
func (e *Engine) BreakEnd(ctx context.Context, employeeID, idempotencyKey string, source domain.Source) (*Result, error) {
	now := e.now().UTC()
	key := idempotencyKey
	if key == "" {
		key = DeriveIdempotencyKey(employeeID, domain.EventBreakEnd, now)
	}
	if res, err := e.replayIfSeen(ctx, key, now); res != nil || err != nil {
		return res, err
	}

	session, err := e.currentSession(ctx, employeeID, now)
	if err != nil {
		return nil, err
	}
	open := session.OpenBreak()
	if session.State != domain.StateBreak || open < 0 {
		e.countConflict(ctx, domain.EventBreakEnd)
		return nil, domain.Conflict("no open break to end")
	}

	updated := session.Clone()
	end := now
	updated.Breaks[open].EndAt = &end
	updated.Breaks[open].Duration = end.Sub(updated.Breaks[open].StartAt)
	updated.State = domain.StateWorking
	updated.UpdatedAt = now
	event := e.newEvent(updated, domain.EventBreakEnd, now, source, key, "")

	if err := e.repo.UpdateSessionWithEvent(ctx, updated, domain.StateBreak, event); err != nil {
		return e.mapApplyErr(ctx, err, key, now, domain.EventBreakEnd)
	}

	e.afterApply(ctx, event, "break_end",
		fmt.Sprintf("break ended at %s after %s", now.Format(time.RFC3339), updated.Breaks[open].Duration))
	return &Result{Session: updated, Totals: ComputeTotals(updated, now)}, nil
}

// ClockOut closes the employee's current session. A session on break
// cannot be closed: the break must be ended first. This is a hard rule.
func (e *Engine) ClockOut(ctx context.Context, employeeID, idempotencyKey string, source domain.Source) (*Result, error) {
	now := e.now().UTC()
	key := idempotencyKey
	if key == "" {
		key = DeriveIdempotencyKey(employeeID, domain.EventClockOut, now)
	}
	if res, err := e.replayIfSeen(ctx, key, now); res != nil || err != nil {
		return res, err
	}

	session, err := e.currentSession(ctx, employeeID, now)
	if err != nil {
		return nil, err
	}
	switch session.State {
	case domain.StateBreak:
		e.countConflict(ctx, domain.EventClockOut)
		return nil, domain.Conflict("cannot clock out while on break; end the break first")
	case domain.StateClosed:
		e.countConflict(ctx, domain.EventClockOut)
		return nil, domain.Conflict("session is already closed")
	}

	updated := session.Clone()
	end := now
	updated.ClockOutAt = &end
	updated.State = domain.StateClosed
	updated.UpdatedAt = now
	event := e.newEvent(updated, domain.EventClockOut, now, source, key, "")

	if err := e.repo.UpdateSessionWithEvent(ctx, updated, domain.StateWorking, event); err != nil {
		return e.mapApplyErr(ctx, err, key, now, domain.EventClockOut)
	}

	totals := ComputeTotals(updated, now)
	e.afterApply(ctx, event, "clock_out",
		fmt.Sprintf("clocked out at %s, net %ds", now.Format(time.RFC3339), totals.NetWorkSeconds))
	return &Result{Session: updated, Totals: totals}, nil
}

// currentSession loads the session a transition applies to: today's
// session if one exists, otherwise yesterday's still-open session. The
// fallback is what lets an overnight shift clock out after midnight
// while the session stays filed under the day it started.
func (e *Engine) currentSession(ctx context.Context, employeeID string, now time.Time) (*domain.TimeSession, error) {
	dayKey := domain.DayKeyFor(now, e.loc)
	session, err := e.repo.GetSessionByEmployeeAndDay(ctx, employeeID, dayKey)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	prevKey := domain.DayKeyFor(now.Add(-24*time.Hour), e.loc)
	session, err = e.repo.GetSessionByEmployeeAndDay(ctx, employeeID, prevKey)
	if err != nil {
		return nil, err
	}
	if session != nil && session.State != domain.StateClosed {
		return session, nil
	}
	return nil, domain.NotFound(fmt.Sprintf("no attendance session for %s; clock in first", dayKey))
}

// mapApplyErr translates repository write conflicts: a stale state guard
// becomes a Conflict, a duplicate idempotency key becomes a replay of
// the recorded outcome. The expected-prior-state guard on the update is
// what makes lost updates impossible: a transition raced by another one
// is rejected, never overwritten.
func (e *Engine) mapApplyErr(ctx context.Context, err error, key string, now time.Time, t domain.EventType) (*Result, error) {
	switch {
	case errors.Is(err, repository.ErrStaleState):
		e.countConflict(ctx, t)
		return nil, domain.Conflict("session changed concurrently; refresh and retry")
	case errors.Is(err, repository.ErrDuplicateEvent):
		return e.replayRecorded(ctx, key, now)
	}
	return nil, err
}

// replayIfSeen short-circuits a mutation whose idempotency key is
// already recorded: the prior result is returned without re-validating
// or re-mutating anything. Returns (nil, nil) on a miss.
func (e *Engine) replayIfSeen(ctx context.Context, key string, now time.Time) (*Result, error) {
	event, err := e.repo.GetEventByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}
	return e.duplicateResult(ctx, event, now)
}

// replayRecorded handles losing the append race on an idempotency key:
// the winner's event is re-read and returned as a duplicate.
func (e *Engine) replayRecorded(ctx context.Context, key string, now time.Time) (*Result, error) {
	event, err := e.repo.GetEventByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if event == nil {
		// Key collided a moment ago but is gone now; events are append-only,
		// so this indicates storage corruption.
		return nil, fmt.Errorf("idempotency key %q vanished from event log", key)
	}
	return e.duplicateResult(ctx, event, now)
}

func (e *Engine) duplicateResult(ctx context.Context, event *domain.TimeEvent, now time.Time) (*Result, error) {
	session, err := e.repo.GetSessionByID(ctx, event.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("event %s references missing session %s", event.ID, event.SessionID)
	}
	e.countDuplicate(ctx, event.Type)
	return &Result{Session: session, Totals: ComputeTotals(session, now), Duplicate: true}, nil
}

func (e *Engine) newEvent(s *domain.TimeSession, t domain.EventType, now time.Time, source domain.Source, key, metadata string) *domain.TimeEvent {
	return &domain.TimeEvent{
		ID:             uuid.New().String(),
		SessionID:      s.ID,
		EmployeeID:     s.EmployeeID,
		Type:           t,
		TimestampUTC:   now,
		Source:         source,
		IdempotencyKey: key,
		Metadata:       metadata,
		CreatedAt:      now,
	}
}

// afterApply runs the best-effort side channels of a committed
// transition. None of them can fail the operation.
func (e *Engine) afterApply(ctx context.Context, event *domain.TimeEvent, action, summary string) {
	if e.audit != nil {
		e.audit.Record(ctx, event.EmployeeID, action, "time_session", summary, "")
	}
	if e.emitter != nil {
		if err := e.emitter.Emit(ctx, event); err != nil && e.log != nil {
			e.log.WithError(err).WithField("event_id", event.ID).Warn("event emit failed")
		}
	}
	e.countTransition(ctx, event.Type)
}

// CorrectionInput is an admin override of a session's recorded values.
// Nil fields are left untouched.
type CorrectionInput struct {
	ClockInAt  *time.Time
	ClockOutAt *time.Time
	Breaks     *[]domain.BreakEntry
	Reason     string
}

// correctionSnapshot is the before/after image stored in the correction
// event's metadata.
type correctionSnapshot struct {
	ClockInAt  time.Time           `json:"clock_in_at"`
	ClockOutAt *time.Time          `json:"clock_out_at,omitempty"`
	Breaks     []domain.BreakEntry `json:"breaks"`
	State      domain.SessionState `json:"state"`
}

// ApplyCorrection overwrites a session's recorded values, bypassing the
// normal transition guards. It requires a reason, captures the
// pre-correction values into the appended CORRECTION event, and forces
// the session closed when a clock-out is supplied. The day key is never
// recomputed, even when the corrected clock-in moves across midnight.
func (e *Engine) ApplyCorrection(ctx context.Context, sessionID string, in CorrectionInput) (*Result, error) {
	reason := strings.TrimSpace(in.Reason)
	if len(reason) < minCorrectionReasonLen {
		return nil, domain.Validation(fmt.Sprintf("correction_reason must be at least %d characters", minCorrectionReasonLen))
	}

	session, err := e.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NotFound("session not found")
	}

	now := e.now().UTC()
	original := snapshot(session)

	updated := session.Clone()
	if in.ClockInAt != nil {
		updated.ClockInAt = in.ClockInAt.UTC()
	}
	if in.ClockOutAt != nil {
		t := in.ClockOutAt.UTC()
		updated.ClockOutAt = &t
		updated.State = domain.StateClosed
	}
	if in.Breaks != nil {
		updated.Breaks = append([]domain.BreakEntry(nil), (*in.Breaks)...)
	}
	updated.UpdatedAt = now

	if err := validateCorrected(updated); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(map[string]any{
		"reason":    reason,
		"original":  original,
		"corrected": snapshot(updated),
	})
	if err != nil {
		return nil, err
	}

	event := e.newEvent(updated, domain.EventCorrection, now, domain.SourceAdminCorrection,
		"correction:"+uuid.New().String(), string(meta))
	if err := e.repo.CorrectSessionWithEvent(ctx, updated, event); err != nil {
		return nil, err
	}

	e.afterApply(ctx, event, "admin_correction",
		fmt.Sprintf("corrected session %s: %s", updated.ID, reason))
	return &Result{Session: updated, Totals: ComputeTotals(updated, now)}, nil
}

func snapshot(s *domain.TimeSession) correctionSnapshot {
	cp := s.Clone()
	return correctionSnapshot{
		ClockInAt:  cp.ClockInAt,
		ClockOutAt: cp.ClockOutAt,
		Breaks:     cp.Breaks,
		State:      cp.State,
	}
}

func validateCorrected(s *domain.TimeSession) error {
	if s.ClockOutAt != nil && !s.ClockOutAt.After(s.ClockInAt) {
		return domain.Validation("clock_out_at must be after clock_in_at")
	}
	open := 0
	for _, b := range s.Breaks {
		if b.EndAt == nil {
			open++
		} else if !b.EndAt.After(b.StartAt) {
			return domain.Validation("break end_at must be after start_at")
		}
	}
	if open > 1 {
		return domain.Validation("at most one break may be open")
	}
	if open > 0 && s.State == domain.StateClosed {
		return domain.Validation("a closed session cannot have an open break")
	}
	return nil
}

// Status describes the caller's current attendance for today.
type Status struct {
	HasSession bool
	Session    *domain.TimeSession
	Totals     Totals
}

// CurrentStatus returns whether the employee has a current session and,
// when present, its state and live totals. An open overnight session
// from the previous day still counts as current.
func (e *Engine) CurrentStatus(ctx context.Context, employeeID string) (*Status, error) {
	now := e.now().UTC()
	session, err := e.currentSession(ctx, employeeID, now)
	if err != nil {
		if domain.IsNotFound(err) {
			return &Status{}, nil
		}
		return nil, err
	}
	return &Status{HasSession: true, Session: session, Totals: ComputeTotals(session, now)}, nil
}

// History returns the employee's sessions over an inclusive day range,
// each with live totals.
func (e *Engine) History(ctx context.Context, employeeID, fromDay, toDay string) ([]*Status, error) {
	sessions, err := e.repo.ListSessionsByEmployeeAndDayRange(ctx, employeeID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	out := make([]*Status, len(sessions))
	for i, s := range sessions {
		out[i] = &Status{HasSession: true, Session: s, Totals: ComputeTotals(s, now)}
	}
	return out, nil
}

// SessionWithEvents returns one session plus its full event history.
func (e *Engine) SessionWithEvents(ctx context.Context, sessionID string) (*domain.TimeSession, []*domain.TimeEvent, Totals, error) {
	session, err := e.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, nil, Totals{}, err
	}
	if session == nil {
		return nil, nil, Totals{}, domain.NotFound("session not found")
	}
	events, err := e.repo.ListEventsBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, Totals{}, err
	}
	return session, events, ComputeTotals(session, e.now().UTC()), nil
}

// ListSessions returns sessions matching the filter with live totals.
// Privileged callers only; authorization happens at the transport layer.
func (e *Engine) ListSessions(ctx context.Context, f repository.SessionFilter) ([]*Status, error) {
	sessions, err := e.repo.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	out := make([]*Status, len(sessions))
	for i, s := range sessions {
		out[i] = &Status{HasSession: true, Session: s, Totals: ComputeTotals(s, now)}
	}
	return out, nil
}

// ListEvents returns raw events matching the filter, for audit.
func (e *Engine) ListEvents(ctx context.Context, f repository.EventFilter) ([]*domain.TimeEvent, error) {
	return e.repo.ListEvents(ctx, f)
}
