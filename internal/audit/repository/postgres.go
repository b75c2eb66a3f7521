package repository

import (
	"context"
	"database/sql"

	"github.com/carlsburger/GastroCore-sub000/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, employee_id, actor_id, action, resource, summary, metadata, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.EmployeeID, a.ActorID, a.Action, a.Resource, a.Summary,
		sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}, a.CreatedAt)
	return err
}

// ListByEmployee returns audit logs for the employee, newest first.
func (r *PostgresRepository) ListByEmployee(ctx context.Context, employeeID string, limit, offset int32) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, employee_id, actor_id, action, resource, summary, metadata, created_at
		 FROM audit_logs WHERE employee_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a    domain.AuditLog
			meta sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.ActorID, &a.Action, &a.Resource,
			&a.Summary, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		if meta.Valid {
			a.Metadata = meta.String
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
