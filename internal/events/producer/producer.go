// Package producer publishes applied time events to downstream
// consumers (payroll export, reporting). Emission is best-effort and
// never affects the attendance operation that produced the event.
package producer

import (
	"context"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// Producer emits applied time events.
type Producer interface {
	Emit(ctx context.Context, e *domain.TimeEvent) error
	Close() error
}
