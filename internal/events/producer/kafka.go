package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer creates a Kafka producer that writes time events to
// the given topic. Returns (nil, nil) when brokers or topic are unset so
// callers can wire it unconditionally. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}, nil
}

// wireEvent is the JSON shape written to the topic.
type wireEvent struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	EmployeeID     string    `json:"employee_id"`
	EventType      string    `json:"event_type"`
	TimestampUTC   time.Time `json:"timestamp_utc"`
	Source         string    `json:"source"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// Emit serializes the event as JSON and writes it to the Kafka topic,
// keyed by employee so one employee's events stay ordered per partition.
// Uses a short timeout so slow Kafka does not block callers indefinitely.
func (p *KafkaProducer) Emit(ctx context.Context, e *domain.TimeEvent) error {
	if p == nil || p.writer == nil || e == nil {
		return nil
	}
	payload, err := json.Marshal(wireEvent{
		ID:             e.ID,
		SessionID:      e.SessionID,
		EmployeeID:     e.EmployeeID,
		EventType:      string(e.Type),
		TimestampUTC:   e.TimestampUTC,
		Source:         string(e.Source),
		IdempotencyKey: e.IdempotencyKey,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.EmployeeID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
