package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// NewEventEmitter returns an emitter that records applied time events as
// OTel log records via the given LoggerProvider. Used when no Kafka
// brokers are configured so applied events still reach the collector. A
// nil provider yields a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) *LogEmitter {
	if provider == nil {
		return &LogEmitter{}
	}
	return &LogEmitter{logger: provider.Logger("gastrocore.attendance.events")}
}

// LogEmitter implements the engine's Emitter over the OTel log signal.
type LogEmitter struct {
	logger otellog.Logger
}

func (l *LogEmitter) Emit(ctx context.Context, e *domain.TimeEvent) error {
	if l == nil || l.logger == nil || e == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetTimestamp(e.TimestampUTC)
	rec.SetBody(otellog.StringValue(string(e.Type)))
	rec.AddAttributes(
		otellog.String("event_id", e.ID),
		otellog.String("session_id", e.SessionID),
		otellog.String("employee_id", e.EmployeeID),
		otellog.String("source", string(e.Source)),
	)
	if e.Metadata != "" {
		rec.AddAttributes(otellog.String("metadata", e.Metadata))
	}
	l.logger.Emit(ctx, rec)
	return nil
}
