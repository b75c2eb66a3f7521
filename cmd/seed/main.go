// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev employee (ana@example.com)
// already exists.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
	"github.com/carlsburger/GastroCore-sub000/internal/attendance/engine"
	"github.com/carlsburger/GastroCore-sub000/internal/config"
	"github.com/carlsburger/GastroCore-sub000/internal/db"
	"github.com/carlsburger/GastroCore-sub000/internal/security"
)

const devEmployeeEmail = "ana@example.com"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; seeding needs a database")
		os.Exit(1)
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	var existing string
	err = sqlDB.QueryRowContext(ctx,
		`SELECT id FROM employees WHERE lower(email) = lower($1)`, devEmployeeEmail).Scan(&existing)
	switch {
	case err == nil:
		log.Printf("seed: dev employee %s already present, nothing to do", devEmployeeEmail)
		return
	case err != sql.ErrNoRows:
		log.Fatalf("seed: %v", err)
	}

	now := time.Now().UTC()
	loc := cfg.Location()

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	defer tx.Rollback()

	ana := insertEmployee(ctx, tx, now, "user-ana", devEmployeeEmail, "Ana Weber")
	ben := insertEmployee(ctx, tx, now, "", "ben@example.com", "Ben Fischer")
	insertEmployee(ctx, tx, now, "user-admin", "admin@example.com", "Clara Admin")

	// Ana: a published day shift today and an overnight shift tomorrow.
	today := now.In(loc).Truncate(24 * time.Hour)
	insertShift(ctx, tx, now, ana, today.Add(9*time.Hour), today.Add(17*time.Hour), "PUBLISHED", "service")
	insertShift(ctx, tx, now, ana, today.Add(46*time.Hour), today.Add(54*time.Hour), "PUBLISHED", "bar")

	// Ben: a closed session from yesterday with a full event trail.
	yesterday := now.Add(-24 * time.Hour)
	dayKey := yesterday.In(loc).Format("2006-01-02")
	clockIn := yesterday.Truncate(time.Hour)
	clockOut := clockIn.Add(8 * time.Hour)
	sessionID := uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO time_sessions (id, employee_id, day_key, state, shift_id, link_method,
			clock_in_at, clock_out_at, breaks, created_at, updated_at)
		VALUES ($1, $2, $3, 'CLOSED', NULL, 'NONE', $4, $5, '[]', $6, $6)`,
		sessionID, ben, dayKey, clockIn, clockOut, now); err != nil {
		log.Fatalf("seed: session: %v", err)
	}
	insertEvent(ctx, tx, now, sessionID, ben, "CLOCK_IN", clockIn)
	insertEvent(ctx, tx, now, sessionID, ben, "CLOCK_OUT", clockOut)

	if err := tx.Commit(); err != nil {
		log.Fatalf("seed: commit: %v", err)
	}

	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	for _, p := range []security.Principal{
		{UserID: "user-ana", Email: devEmployeeEmail, Role: security.RoleEmployee},
		{UserID: "user-admin", Email: "admin@example.com", Role: security.RoleAdmin},
	} {
		token, _, err := tokens.Issue(p)
		if err != nil {
			log.Fatalf("seed: token: %v", err)
		}
		log.Printf("seed: token for %s (%s): %s", p.Email, p.Role, token)
	}
	log.Println("seed: done")
}

func insertEmployee(ctx context.Context, tx *sql.Tx, now time.Time, userID, email, name string) string {
	id := uuid.New().String()
	var uid any
	if userID != "" {
		uid = userID
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO employees (id, user_id, email, full_name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)`,
		id, uid, email, name, now); err != nil {
		log.Fatalf("seed: employee %s: %v", email, err)
	}
	return id
}

func insertShift(ctx context.Context, tx *sql.Tx, now time.Time, employeeID string, start, end time.Time, status, role string) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shifts (id, employee_id, start_time_utc, end_time_utc, status, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		uuid.New().String(), employeeID, start.UTC(), end.UTC(), status, role, now); err != nil {
		log.Fatalf("seed: shift: %v", err)
	}
}

func insertEvent(ctx context.Context, tx *sql.Tx, now time.Time, sessionID, employeeID, eventType string, at time.Time) {
	key := engine.DeriveIdempotencyKey(employeeID, domain.EventType(eventType), at)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO time_events (id, session_id, employee_id, event_type, timestamp_utc,
			source, idempotency_key, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, 'APP', $6, NULL, $7)`,
		uuid.New().String(), sessionID, employeeID, eventType, at, key, now); err != nil {
		log.Fatalf("seed: event %s: %v", eventType, err)
	}
}
