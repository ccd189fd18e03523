package repository

import (
	"context"
	"database/sql"
	"errors"

	"attendance-control-plane/internal/roster/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a roster repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetStudent returns the student with the given identity, or nil if unknown.
func (r *PostgresRepository) GetStudent(ctx context.Context, identity string) (*domain.Student, error) {
	var s domain.Student
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity, display_name, created_at FROM students WHERE identity = $1`,
		identity).Scan(&s.ID, &s.Identity, &s.DisplayName, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SessionRosterRef returns the session's roster_ref, or "" when unset.
func (r *PostgresRepository) SessionRosterRef(ctx context.Context, sessionID string) (string, error) {
	var ref sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT roster_ref FROM sessions WHERE id = $1`, sessionID).Scan(&ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if !ref.Valid {
		return "", nil
	}
	return ref.String, nil
}

func (r *PostgresRepository) HasSessionRoster(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_rosters WHERE session_id = $1)`, sessionID).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) IsInSessionRoster(ctx context.Context, sessionID, identity string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_rosters WHERE session_id = $1 AND identity = $2)`,
		sessionID, identity).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) IsInClassRoster(ctx context.Context, rosterRef, identity string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_rosters WHERE roster_ref = $1 AND identity = $2)`,
		rosterRef, identity).Scan(&exists)
	return exists, err
}

// AllIdentities prefers the session's own roster; otherwise falls back to the
// class roster referenced by the session.
func (r *PostgresRepository) AllIdentities(ctx context.Context, sessionID string) ([]string, error) {
	has, err := r.HasSessionRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	if has {
		rows, err = r.db.QueryContext(ctx,
			`SELECT identity FROM session_rosters WHERE session_id = $1`, sessionID)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT cr.identity FROM class_rosters cr
			 JOIN sessions s ON s.roster_ref = cr.roster_ref
			 WHERE s.id = $1`, sessionID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
