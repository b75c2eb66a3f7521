package engine

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/repository"
)

// testClock is a settable clock for driving the engine through a day.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixedLinker implements ShiftLinker with a canned answer.
type fixedLinker struct {
	shiftID string
	method  domain.LinkMethod
}

func (l *fixedLinker) Link(context.Context, string, time.Time) (string, domain.LinkMethod) {
	if l.shiftID == "" {
		return "", domain.LinkNone
	}
	return l.shiftID, l.method
}

func newTestEngine(repo repository.Repository, clock *testClock) *Engine {
	return New(Deps{Repo: repo, Now: clock.Now})
}

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestClockIn_OpensWorkingSession(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)

	res, err := eng.ClockIn(context.Background(), "emp-1", "key-1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if res.Duplicate {
		t.Error("Duplicate = true on first clock-in")
	}
	if res.Session.State != domain.StateWorking {
		t.Errorf("state = %s, want %s", res.Session.State, domain.StateWorking)
	}
	if res.Session.DayKey != "2026-03-10" {
		t.Errorf("day_key = %q, want %q", res.Session.DayKey, "2026-03-10")
	}

	events, err := repo.ListEventsBySession(context.Background(), res.Session.ID)
	if err != nil {
		t.Fatalf("ListEventsBySession: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.EventClockIn {
		t.Fatalf("events = %v, want exactly one CLOCK_IN", events)
	}
}

func TestClockIn_SecondSameDay_Conflict(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)

	if _, err := eng.ClockIn(context.Background(), "emp-1", "key-1", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	clock.Advance(5 * time.Minute)
	_, err := eng.ClockIn(context.Background(), "emp-1", "key-2", domain.SourceApp)
	if !domain.IsConflict(err) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestClockIn_DifferentEmployees_Independent(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)

	if _, err := eng.ClockIn(context.Background(), "emp-1", "key-1", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn emp-1: %v", err)
	}
	if _, err := eng.ClockIn(context.Background(), "emp-2", "key-2", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn emp-2: %v", err)
	}
}

func TestClockIn_ConcurrentSameDay_ExactlyOneWins(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "key-" + string(rune('a'+i))
			_, errs[i] = eng.ClockIn(context.Background(), "emp-1", key, domain.SourceApp)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and %d", ok, conflicts, n-1)
	}

	sessions, err := repo.ListSessions(context.Background(), repository.SessionFilter{EmployeeID: "emp-1"})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
}

func TestClockIn_UsesLinker(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := New(Deps{
		Repo:   repo,
		Linker: &fixedLinker{shiftID: "shift-7", method: domain.LinkAuto},
		Now:    clock.Now,
	})

	res, err := eng.ClockIn(context.Background(), "emp-1", "key-1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if res.Session.ShiftID != "shift-7" || res.Session.LinkMethod != domain.LinkAuto {
		t.Errorf("link = (%q, %s), want (shift-7, AUTO)", res.Session.ShiftID, res.Session.LinkMethod)
	}
}

func TestBreakFlow(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	if _, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	clock.Advance(3 * time.Hour)
	res, err := eng.BreakStart(ctx, "emp-1", "k2", domain.SourceApp)
	if err != nil {
		t.Fatalf("BreakStart: %v", err)
	}
	if res.Session.State != domain.StateBreak {
		t.Errorf("state = %s, want BREAK", res.Session.State)
	}

	// A second break cannot start while one is open.
	if _, err := eng.BreakStart(ctx, "emp-1", "k3", domain.SourceApp); !domain.IsConflict(err) {
		t.Fatalf("second BreakStart err = %v, want Conflict", err)
	}

	clock.Advance(30 * time.Minute)
	res, err = eng.BreakEnd(ctx, "emp-1", "k4", domain.SourceApp)
	if err != nil {
		t.Fatalf("BreakEnd: %v", err)
	}
	if res.Session.State != domain.StateWorking {
		t.Errorf("state = %s, want WORKING", res.Session.State)
	}
	if got := res.Session.Breaks[0].Duration; got != 30*time.Minute {
		t.Errorf("break duration = %s, want 30m", got)
	}

	// No open break left to end.
	if _, err := eng.BreakEnd(ctx, "emp-1", "k5", domain.SourceApp); !domain.IsConflict(err) {
		t.Fatalf("BreakEnd err = %v, want Conflict", err)
	}
}

func TestClockOut_DuringBreak_Conflict(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	if _, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	clock.Advance(time.Hour)
	if _, err := eng.BreakStart(ctx, "emp-1", "k2", domain.SourceApp); err != nil {
		t.Fatalf("BreakStart: %v", err)
	}

	clock.Advance(time.Minute)
	_, err := eng.ClockOut(ctx, "emp-1", "k3", domain.SourceApp)
	if !domain.IsConflict(err) {
		t.Fatalf("ClockOut err = %v, want Conflict", err)
	}

	// Ending the break unblocks the clock-out.
	if _, err := eng.BreakEnd(ctx, "emp-1", "k4", domain.SourceApp); err != nil {
		t.Fatalf("BreakEnd: %v", err)
	}
	res, err := eng.ClockOut(ctx, "emp-1", "k5", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if res.Session.State != domain.StateClosed || res.Session.ClockOutAt == nil {
		t.Errorf("session not closed: state = %s", res.Session.State)
	}
}

func TestClockOut_NoSession_NotFound(t *testing.T) {
	repo := repository.NewMemoryRepository()
	eng := newTestEngine(repo, newTestClock(baseTime))

	if _, err := eng.ClockOut(context.Background(), "emp-1", "k1", domain.SourceApp); !domain.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestClosedSession_IsTerminal(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	if _, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	clock.Advance(8 * time.Hour)
	if _, err := eng.ClockOut(ctx, "emp-1", "k2", domain.SourceApp); err != nil {
		t.Fatalf("ClockOut: %v", err)
	}

	clock.Advance(time.Minute)
	if _, err := eng.ClockOut(ctx, "emp-1", "k3", domain.SourceApp); !domain.IsConflict(err) {
		t.Errorf("ClockOut on closed err = %v, want Conflict", err)
	}
	if _, err := eng.BreakStart(ctx, "emp-1", "k4", domain.SourceApp); !domain.IsConflict(err) {
		t.Errorf("BreakStart on closed err = %v, want Conflict", err)
	}
	if _, err := eng.ClockIn(ctx, "emp-1", "k5", domain.SourceApp); !domain.IsConflict(err) {
		t.Errorf("ClockIn same day err = %v, want Conflict", err)
	}
}

func TestIdempotentReplay_ReturnsOriginalOutcome(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	first, err := eng.ClockIn(ctx, "emp-1", "retry-key", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	clock.Advance(10 * time.Minute)
	replay, err := eng.ClockIn(ctx, "emp-1", "retry-key", domain.SourceApp)
	if err != nil {
		t.Fatalf("replayed ClockIn: %v", err)
	}
	if !replay.Duplicate {
		t.Error("Duplicate = false on replay")
	}
	if replay.Session.ID != first.Session.ID {
		t.Errorf("replay session = %s, want %s", replay.Session.ID, first.Session.ID)
	}
	if !replay.Session.ClockInAt.Equal(first.Session.ClockInAt) {
		t.Error("replay mutated clock_in_at")
	}

	events, err := repo.ListEventsBySession(ctx, first.Session.ID)
	if err != nil {
		t.Fatalf("ListEventsBySession: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 after replay", len(events))
	}
}

func TestDerivedKey_CollapsesRetriesWithinMinute(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	if _, err := eng.ClockIn(ctx, "emp-1", "", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	clock.Advance(20 * time.Second)
	replay, err := eng.ClockIn(ctx, "emp-1", "", domain.SourceApp)
	if err != nil {
		t.Fatalf("retried ClockIn: %v", err)
	}
	if !replay.Duplicate {
		t.Error("retry within the same minute did not collapse")
	}

	// Past the minute bucket the retry is a real attempt again.
	clock.Advance(time.Minute)
	if _, err := eng.ClockIn(ctx, "emp-1", "", domain.SourceApp); !domain.IsConflict(err) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

// staleRepo fails every guarded update, simulating a lost race.
type staleRepo struct {
	repository.Repository
}

func (r *staleRepo) UpdateSessionWithEvent(context.Context, *domain.TimeSession, domain.SessionState, *domain.TimeEvent) error {
	return repository.ErrStaleState
}

func TestGuardedUpdateRace_MapsToConflict(t *testing.T) {
	mem := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	if _, err := newTestEngine(mem, clock).ClockIn(context.Background(), "emp-1", "k1", domain.SourceApp); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	eng := newTestEngine(&staleRepo{Repository: mem}, clock)
	clock.Advance(time.Hour)
	_, err := eng.ClockOut(context.Background(), "emp-1", "k2", domain.SourceApp)
	if !domain.IsConflict(err) {
		t.Fatalf("err = %v, want Conflict", err)
	}
}

func TestDayKey_FixedAtClockIn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	// 22:30 UTC on March 10 is 23:30 in Berlin.
	clock := newTestClock(time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC))
	repo := repository.NewMemoryRepository()
	eng := New(Deps{Repo: repo, Location: loc, Now: clock.Now})
	ctx := context.Background()

	res, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if res.Session.DayKey != "2026-03-10" {
		t.Fatalf("day_key = %q, want 2026-03-10", res.Session.DayKey)
	}

	// Clocking out after local midnight keeps the session on its day.
	clock.Advance(4 * time.Hour)
	out, err := eng.ClockOut(ctx, "emp-1", "k2", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if out.Session.DayKey != "2026-03-10" {
		t.Errorf("day_key after overnight close = %q, want 2026-03-10", out.Session.DayKey)
	}

	// The new local day is free for a fresh session.
	res, err = eng.ClockIn(ctx, "emp-1", "k3", domain.SourceApp)
	if err != nil {
		t.Fatalf("next-day ClockIn: %v", err)
	}
	if res.Session.DayKey != "2026-03-11" {
		t.Errorf("next-day day_key = %q, want 2026-03-11", res.Session.DayKey)
	}
}

func TestApplyCorrection_RequiresReason(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	res, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	for _, reason := range []string{"", "   ", "short"} {
		if _, err := eng.ApplyCorrection(ctx, res.Session.ID, CorrectionInput{Reason: reason}); !domain.IsValidation(err) {
			t.Errorf("reason %q: err = %v, want Validation", reason, err)
		}
	}
}

func TestApplyCorrection_UnknownSession_NotFound(t *testing.T) {
	eng := newTestEngine(repository.NewMemoryRepository(), newTestClock(baseTime))
	_, err := eng.ApplyCorrection(context.Background(), "missing", CorrectionInput{Reason: "forgot to clock out yesterday"})
	if !domain.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestApplyCorrection_ClosesSessionAndRecordsSnapshot(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	res, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	clock.Advance(12 * time.Hour)
	out := baseTime.Add(8 * time.Hour)
	corrected, err := eng.ApplyCorrection(ctx, res.Session.ID, CorrectionInput{
		ClockOutAt: &out,
		Reason:     "employee forgot to clock out",
	})
	if err != nil {
		t.Fatalf("ApplyCorrection: %v", err)
	}
	if corrected.Session.State != domain.StateClosed {
		t.Errorf("state = %s, want CLOSED", corrected.Session.State)
	}
	if corrected.Session.ClockOutAt == nil || !corrected.Session.ClockOutAt.Equal(out) {
		t.Errorf("clock_out_at = %v, want %v", corrected.Session.ClockOutAt, out)
	}

	events, err := repo.ListEventsBySession(ctx, res.Session.ID)
	if err != nil {
		t.Fatalf("ListEventsBySession: %v", err)
	}
	var correction *domain.TimeEvent
	for _, e := range events {
		if e.Type == domain.EventCorrection {
			correction = e
		}
	}
	if correction == nil {
		t.Fatal("no CORRECTION event appended")
	}
	if correction.Source != domain.SourceAdminCorrection {
		t.Errorf("source = %s, want ADMIN_CORRECTION", correction.Source)
	}

	var meta struct {
		Reason    string             `json:"reason"`
		Original  correctionSnapshot `json:"original"`
		Corrected correctionSnapshot `json:"corrected"`
	}
	if err := json.Unmarshal([]byte(correction.Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if !strings.Contains(meta.Reason, "forgot to clock out") {
		t.Errorf("reason = %q", meta.Reason)
	}
	if meta.Original.ClockOutAt != nil {
		t.Error("original snapshot already has a clock-out")
	}
	if meta.Corrected.ClockOutAt == nil || !meta.Corrected.ClockOutAt.Equal(out) {
		t.Errorf("corrected snapshot clock_out = %v, want %v", meta.Corrected.ClockOutAt, out)
	}
}

func TestApplyCorrection_RejectsInvertedTimes(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	res, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	out := baseTime.Add(-time.Hour)
	_, err = eng.ApplyCorrection(ctx, res.Session.ID, CorrectionInput{
		ClockOutAt: &out,
		Reason:     "clerical adjustment requested",
	})
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestApplyCorrection_RejectsOpenBreakOnClosedSession(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	res, err := eng.ClockIn(ctx, "emp-1", "k1", domain.SourceApp)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	out := baseTime.Add(8 * time.Hour)
	breaks := []domain.BreakEntry{{StartAt: baseTime.Add(3 * time.Hour)}}
	_, err = eng.ApplyCorrection(ctx, res.Session.ID, CorrectionInput{
		ClockOutAt: &out,
		Breaks:     &breaks,
		Reason:     "rebuild break list after terminal outage",
	})
	if !domain.IsValidation(err) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	repo := repository.NewMemoryRepository()
	clock := newTestClock(baseTime)
	eng := newTestEngine(repo, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := eng.ClockIn(ctx, "emp-1", "in-"+string(rune('a'+i)), domain.SourceApp); err != nil {
			t.Fatalf("ClockIn day %d: %v", i, err)
		}
		clock.Advance(8 * time.Hour)
		if _, err := eng.ClockOut(ctx, "emp-1", "out-"+string(rune('a'+i)), domain.SourceApp); err != nil {
			t.Fatalf("ClockOut day %d: %v", i, err)
		}
		clock.Advance(16 * time.Hour)
	}

	entries, err := eng.History(ctx, "emp-1", "2026-03-10", "2026-03-12")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Session.DayKey != "2026-03-12" || entries[2].Session.DayKey != "2026-03-10" {
		t.Errorf("order = %s..%s, want newest first", entries[0].Session.DayKey, entries[2].Session.DayKey)
	}
}

func TestCurrentStatus_NoSession(t *testing.T) {
	eng := newTestEngine(repository.NewMemoryRepository(), newTestClock(baseTime))
	st, err := eng.CurrentStatus(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("CurrentStatus: %v", err)
	}
	if st.HasSession {
		t.Error("HasSession = true without a session")
	}
}
