package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// Metrics holds the engine's OpenTelemetry instruments. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	transitions metric.Int64Counter
	conflicts   metric.Int64Counter
	duplicates  metric.Int64Counter
}

// NewMetrics registers the engine counters on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transitions, err := meter.Int64Counter("attendance.transitions",
		metric.WithDescription("Applied attendance state transitions"))
	if err != nil {
		return nil, err
	}
	conflicts, err := meter.Int64Counter("attendance.conflicts",
		metric.WithDescription("Rejected transitions (state-machine or concurrency conflicts)"))
	if err != nil {
		return nil, err
	}
	duplicates, err := meter.Int64Counter("attendance.duplicates",
		metric.WithDescription("Idempotent replays returned without re-applying"))
	if err != nil {
		return nil, err
	}
	return &Metrics{transitions: transitions, conflicts: conflicts, duplicates: duplicates}, nil
}

func eventAttr(t domain.EventType) metric.AddOption {
	return metric.WithAttributes(attribute.String("event_type", string(t)))
}

func (e *Engine) countTransition(ctx context.Context, t domain.EventType) {
	if e.metrics == nil {
		return
	}
	e.metrics.transitions.Add(ctx, 1, eventAttr(t))
}

func (e *Engine) countConflict(ctx context.Context, t domain.EventType) {
	if e.metrics == nil {
		return
	}
	e.metrics.conflicts.Add(ctx, 1, eventAttr(t))
}

func (e *Engine) countDuplicate(ctx context.Context, t domain.EventType) {
	if e.metrics == nil {
		return
	}
	e.metrics.duplicates.Add(ctx, 1, eventAttr(t))
}
