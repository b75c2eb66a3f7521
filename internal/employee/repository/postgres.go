package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/carlsburger/GastroCore-sub000/internal/employee/domain"
)

const employeeColumns = `id, user_id, email, full_name, active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an employee repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ResolveByPrincipal returns the active employee linked to userID, or
// failing that, the active employee whose email matches. Returns nil
// when neither matches; only database failures are errors.
func (r *PostgresRepository) ResolveByPrincipal(ctx context.Context, userID, email string) (*domain.Employee, error) {
	if userID != "" {
		e, err := r.scanOne(ctx,
			`SELECT `+employeeColumns+` FROM employees WHERE user_id = $1 AND active`, userID)
		if err != nil || e != nil {
			return e, err
		}
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil
	}
	return r.scanOne(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE lower(email) = $1 AND active`, email)
}

// GetByID returns the employee for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	return r.scanOne(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Employee, error) {
	var (
		e      domain.Employee
		userID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&e.ID, &userID, &e.Email, &e.FullName, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if userID.Valid {
		e.UserID = userID.String
	}
	return &e, nil
}
