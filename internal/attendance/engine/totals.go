package engine

import (
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// Totals are the derived durations of a session. They are computed on
// every read and never stored, so an in-progress session always reports
// its elapsed time accurately.
type Totals struct {
	TotalWorkSeconds  int64 `json:"total_work_seconds"`
	TotalBreakSeconds int64 `json:"total_break_seconds"`
	NetWorkSeconds    int64 `json:"net_work_seconds"`
}

// ComputeTotals derives work, break, and net durations from the
// session's timestamps. Open sessions and open breaks are measured
// against now.
func ComputeTotals(s *domain.TimeSession, now time.Time) Totals {
	if s == nil {
		return Totals{}
	}
	end := now
	if s.ClockOutAt != nil {
		end = *s.ClockOutAt
	}
	work := int64(end.Sub(s.ClockInAt) / time.Second)

	var brk int64
	for _, b := range s.Breaks {
		bEnd := now
		if b.EndAt != nil {
			bEnd = *b.EndAt
		}
		brk += int64(bEnd.Sub(b.StartAt) / time.Second)
	}

	net := work - brk
	if net < 0 {
		net = 0
	}
	return Totals{TotalWorkSeconds: work, TotalBreakSeconds: brk, NetWorkSeconds: net}
}
