package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/carlsburger/GastroCore-sub000/internal/shift/domain"
)

const shiftColumns = `id, employee_id, start_time_utc, end_time_utc, status, role, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a shift repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListPublishedByEmployeeBetween returns published shifts for the
// employee starting in [from, to), ordered by start time.
func (r *PostgresRepository) ListPublishedByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]*domain.Shift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts
		 WHERE employee_id = $1 AND status = $2 AND start_time_utc >= $3 AND start_time_utc < $4
		 ORDER BY start_time_utc`,
		employeeID, string(domain.StatusPublished), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID returns the shift for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var (
		s    domain.Shift
		role sql.NullString
	)
	err := row.Scan(&s.ID, &s.EmployeeID, &s.StartTimeUTC, &s.EndTimeUTC, (*string)(&s.Status),
		&role, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.StartTimeUTC = s.StartTimeUTC.UTC()
	s.EndTimeUTC = s.EndTimeUTC.UTC()
	if role.Valid {
		s.Role = role.String
	}
	return &s, nil
}
