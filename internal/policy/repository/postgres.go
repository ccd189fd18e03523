package repository

import (
	"context"
	"database/sql"

	"attendance-control-plane/internal/policy/domain"
)

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetEnabledByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error) {
	query := `
		SELECT id, organizer_id, name, rules, enabled, created_at, updated_at
		FROM policies
		WHERE organizer_id = $1 AND enabled = TRUE
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.Policy
	for rows.Next() {
		p := &domain.Policy{}
		if err := rows.Scan(&p.ID, &p.OrganizerID, &p.Name, &p.Rules, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	query := `
		INSERT INTO policies (id, organizer_id, name, rules, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OrganizerID, p.Name, p.Rules, p.Enabled, p.CreatedAt, p.UpdatedAt)
	return err
}
