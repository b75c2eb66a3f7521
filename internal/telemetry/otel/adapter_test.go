package otel

import (
	"context"
	"testing"
	"time"

	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

func TestNewEventEmitter_NilProvider(t *testing.T) {
	emitter := NewEventEmitter(nil)
	err := emitter.Emit(context.Background(), &domain.TimeEvent{ID: "evt-1"})
	if err != nil {
		t.Errorf("no-op emit: %v", err)
	}
}

func TestLogEmitter_Emit(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	emitter := NewEventEmitter(provider)
	event := &domain.TimeEvent{
		ID:           "evt-1",
		SessionID:    "sess-1",
		EmployeeID:   "emp-1",
		Type:         domain.EventClockIn,
		TimestampUTC: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Source:       domain.SourceApp,
		Metadata:     `{"day_key":"2026-03-10"}`,
	}
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := emitter.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit nil event: %v", err)
	}
}
