// worker consumes applied time events from Kafka and appends them to a
// JSONL payroll export file. Set KAFKA_BROKERS, ATTENDANCE_KAFKA_TOPIC,
// KAFKA_GROUP_ID, and PAYROLL_EXPORT_PATH. JWT_SECRET is required by
// config but unused here (set any value).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/carlsburger/GastroCore-sub000/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.PayrollExportPath == "" {
		log.Fatal("worker: PAYROLL_EXPORT_PATH is required")
	}

	out, err := os.OpenFile(cfg.PayrollExportPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("worker: export file: %v", err)
	}
	defer out.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), exporting to %s",
		cfg.KafkaTopic, cfg.KafkaGroupID, cfg.PayrollExportPath)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		// Events arrive as one JSON object per message; the export file is
		// one object per line.
		if _, err := out.Write(append(msg.Value, '\n')); err != nil {
			log.Printf("worker: export write failed: %v", err)
		}
	}
}
