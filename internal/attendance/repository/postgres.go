package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carlsburger/GastroCore-sub000/internal/attendance/domain"
)

const (
	sessionEmployeeDayConstraint = "time_sessions_employee_id_day_key_key"
	eventIdempotencyConstraint   = "time_events_idempotency_key_key"
	uniqueViolationCode          = "23505"
)

const sessionColumns = `id, employee_id, day_key, state, shift_id, link_method, clock_in_at, clock_out_at, breaks, created_at, updated_at`

const eventColumns = `id, session_id, employee_id, event_type, timestamp_utc, source, idempotency_key, metadata, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session/event repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetSessionByEmployeeAndDay returns the session for the employee and day
// key, or nil if none exists. It returns an error only for database
// failures, not for missing rows.
func (r *PostgresRepository) GetSessionByEmployeeAndDay(ctx context.Context, employeeID, dayKey string) (*domain.TimeSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM time_sessions WHERE employee_id = $1 AND day_key = $2`,
		employeeID, dayKey)
	return scanSession(row)
}

// GetSessionByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetSessionByID(ctx context.Context, id string) (*domain.TimeSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM time_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// ListSessionsByEmployeeAndDayRange returns the employee's sessions with
// day_key in [fromDay, toDay], newest first.
func (r *PostgresRepository) ListSessionsByEmployeeAndDayRange(ctx context.Context, employeeID, fromDay, toDay string) ([]*domain.TimeSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM time_sessions
		 WHERE employee_id = $1 AND day_key >= $2 AND day_key <= $3
		 ORDER BY day_key DESC`,
		employeeID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListSessions returns sessions matching the filter, newest first.
// Zero-value filter fields are ignored.
func (r *PostgresRepository) ListSessions(ctx context.Context, f SessionFilter) ([]*domain.TimeSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM time_sessions WHERE 1=1`
	args := []any{}
	if f.DayKey != "" {
		args = append(args, f.DayKey)
		q += fmt.Sprintf(" AND day_key = $%d", len(args))
	}
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		q += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if f.State != "" {
		args = append(args, string(f.State))
		q += fmt.Sprintf(" AND state = $%d", len(args))
	}
	q += " ORDER BY day_key DESC, clock_in_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// GetEventByIdempotencyKey returns the event recorded under key, or nil
// if the key has never been seen.
func (r *PostgresRepository) GetEventByIdempotencyKey(ctx context.Context, key string) (*domain.TimeEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM time_events WHERE idempotency_key = $1`, key)
	return scanEvent(row)
}

// ListEventsBySession returns the session's events in append order.
func (r *PostgresRepository) ListEventsBySession(ctx context.Context, sessionID string) ([]*domain.TimeEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM time_events WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListEvents returns events matching the filter, newest first.
func (r *PostgresRepository) ListEvents(ctx context.Context, f EventFilter) ([]*domain.TimeEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM time_events WHERE 1=1`
	args := []any{}
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		q += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		q += fmt.Sprintf(" AND timestamp_utc >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		q += fmt.Sprintf(" AND timestamp_utc < $%d", len(args))
	}
	q += " ORDER BY timestamp_utc DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// CreateSessionWithEvent inserts the session and appends the event in one
// transaction. The unique constraint on (employee_id, day_key) makes the
// create-if-absent atomic: a losing concurrent clock-in gets
// ErrSessionExists.
func (r *PostgresRepository) CreateSessionWithEvent(ctx context.Context, s *domain.TimeSession, e *domain.TimeEvent) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		breaks, err := marshalBreaks(s.Breaks)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO time_sessions (`+sessionColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			s.ID, s.EmployeeID, s.DayKey, string(s.State),
			nullString(s.ShiftID), string(s.LinkMethod),
			s.ClockInAt, nullTime(s.ClockOutAt), breaks, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return mapUniqueViolation(err)
		}
		return insertEvent(ctx, tx, e)
	})
}

// UpdateSessionWithEvent writes the session guarded on the expected prior
// state and appends the event in one transaction. A guard miss (zero rows
// updated) rolls back with ErrStaleState so a lost race surfaces as a
// conflict instead of a silent overwrite.
func (r *PostgresRepository) UpdateSessionWithEvent(ctx context.Context, s *domain.TimeSession, expected domain.SessionState, e *domain.TimeEvent) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		breaks, err := marshalBreaks(s.Breaks)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE time_sessions
			 SET state = $1, shift_id = $2, link_method = $3, clock_out_at = $4, breaks = $5, updated_at = $6
			 WHERE id = $7 AND state = $8`,
			string(s.State), nullString(s.ShiftID), string(s.LinkMethod),
			nullTime(s.ClockOutAt), breaks, s.UpdatedAt, s.ID, string(expected))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleState
		}
		return insertEvent(ctx, tx, e)
	})
}

// CorrectSessionWithEvent overwrites the session without a state guard
// and appends the correction event in one transaction.
func (r *PostgresRepository) CorrectSessionWithEvent(ctx context.Context, s *domain.TimeSession, e *domain.TimeEvent) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		breaks, err := marshalBreaks(s.Breaks)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE time_sessions
			 SET state = $1, clock_in_at = $2, clock_out_at = $3, breaks = $4, updated_at = $5
			 WHERE id = $6`,
			string(s.State), s.ClockInAt, nullTime(s.ClockOutAt), breaks, s.UpdatedAt, s.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return insertEvent(ctx, tx, e)
	})
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertEvent(ctx context.Context, tx *sql.Tx, e *domain.TimeEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO time_events (`+eventColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.SessionID, e.EmployeeID, string(e.Type), e.TimestampUTC,
		string(e.Source), e.IdempotencyKey, nullString(e.Metadata), e.CreatedAt)
	return mapUniqueViolation(err)
}

// mapUniqueViolation translates Postgres unique violations on the two
// guarding constraints into the repository sentinels.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		switch pgErr.ConstraintName {
		case sessionEmployeeDayConstraint:
			return ErrSessionExists
		case eventIdempotencyConstraint:
			return ErrDuplicateEvent
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.TimeSession, error) {
	var (
		s          domain.TimeSession
		state      string
		shiftID    sql.NullString
		linkMethod string
		clockOut   sql.NullTime
		breaks     []byte
	)
	err := row.Scan(&s.ID, &s.EmployeeID, &s.DayKey, &state, &shiftID, &linkMethod,
		&s.ClockInAt, &clockOut, &breaks, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	st, err := domain.ParseSessionState(state)
	if err != nil {
		return nil, err
	}
	s.State = st
	if shiftID.Valid {
		s.ShiftID = shiftID.String
	}
	s.LinkMethod = domain.LinkMethod(linkMethod)
	if clockOut.Valid {
		t := clockOut.Time.UTC()
		s.ClockOutAt = &t
	}
	s.ClockInAt = s.ClockInAt.UTC()
	if len(breaks) > 0 {
		if err := json.Unmarshal(breaks, &s.Breaks); err != nil {
			return nil, fmt.Errorf("decode breaks for session %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]*domain.TimeSession, error) {
	var out []*domain.TimeSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanEvent(row rowScanner) (*domain.TimeEvent, error) {
	var (
		e         domain.TimeEvent
		eventType string
		source    string
		metadata  sql.NullString
	)
	err := row.Scan(&e.ID, &e.SessionID, &e.EmployeeID, &eventType, &e.TimestampUTC,
		&source, &e.IdempotencyKey, &metadata, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t, err := domain.ParseEventType(eventType)
	if err != nil {
		return nil, err
	}
	e.Type = t
	e.Source = domain.Source(source)
	e.TimestampUTC = e.TimestampUTC.UTC()
	if metadata.Valid {
		e.Metadata = metadata.String
	}
	return &e, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.TimeEvent, error) {
	var out []*domain.TimeEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalBreaks(breaks []domain.BreakEntry) ([]byte, error) {
	if breaks == nil {
		breaks = []domain.BreakEntry{}
	}
	return json.Marshal(breaks)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
