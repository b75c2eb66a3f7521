// Package linker matches a clock-in instant against the employee's
// published shifts for that day. Linking is opportunistic: only an
// unambiguous match is taken, anything else is left for a manual step.
package linker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	attdomain "github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/shift/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/shift/repository"
)

// Match window around a published shift. A clock-in up to an hour before
// the shift starts, or up to two hours after it ends, is still eligible.
const (
	windowBefore = 60 * time.Minute
	windowAfter  = 120 * time.Minute
)

// Linker resolves the shift a clock-in belongs to.
type Linker struct {
	shifts repository.Repository
	loc    *time.Location
	log    *logrus.Logger
}

// New returns a Linker querying shifts, with days determined in loc.
func New(shifts repository.Repository, loc *time.Location, log *logrus.Logger) *Linker {
	return &Linker{shifts: shifts, loc: loc, log: log}
}

// Link returns the shift to associate with a clock-in at the given
// instant, or ("", LinkNone) when zero or several shifts qualify.
// Ambiguity is surfaced, never guessed. A registry failure also degrades
// to no link: clocking in must not depend on the roster being reachable.
func (l *Linker) Link(ctx context.Context, employeeID string, clockInAt time.Time) (string, attdomain.LinkMethod) {
	if l == nil || l.shifts == nil {
		return "", attdomain.LinkNone
	}
	dayStart, dayEnd := localDayBounds(clockInAt, l.loc)
	shifts, err := l.shifts.ListPublishedByEmployeeBetween(ctx, employeeID, dayStart, dayEnd)
	if err != nil {
		if l.log != nil {
			l.log.WithError(err).WithField("employee_id", employeeID).
				Warn("shift registry unavailable, clock-in left unlinked")
		}
		return "", attdomain.LinkNone
	}

	var matched *domain.Shift
	for _, s := range shifts {
		if !inWindow(s, clockInAt) {
			continue
		}
		if matched != nil {
			// Second qualifying shift: ambiguous.
			return "", attdomain.LinkNone
		}
		matched = s
	}
	if matched == nil {
		return "", attdomain.LinkNone
	}
	return matched.ID, attdomain.LinkAuto
}

// inWindow reports whether instant falls in [start-60m, end+120m].
// An end not after the start means the registry recorded an overnight
// shift with same-day clock times; normalize by pushing the end a day.
func inWindow(s *domain.Shift, instant time.Time) bool {
	start, end := s.StartTimeUTC, s.EndTimeUTC
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	from := start.Add(-windowBefore)
	to := end.Add(windowAfter)
	return !instant.Before(from) && !instant.After(to)
}

// localDayBounds returns the UTC instants of midnight and next midnight
// of the calendar day containing instant in loc.
func localDayBounds(instant time.Time, loc *time.Location) (time.Time, time.Time) {
	local := instant.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return dayStart.UTC(), dayStart.Add(24 * time.Hour).UTC()
}
