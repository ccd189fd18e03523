package repository

import (
	"context"
	"database/sql"

	"attendance-control-plane/internal/organizer/domain"
)

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organizer, error) {
	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM organizers
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Organizer, error) {
	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM organizers
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organizer) error {
	query := `
		INSERT INTO organizers (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.Email, o.Name, o.PasswordHash, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.Organizer, error) {
	o := &domain.Organizer{}
	err := row.Scan(&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
