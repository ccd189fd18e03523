package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-control-plane/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, name, organizer_id, start_time, end_time, late_threshold_seconds, status, roster_ref, absent_marked_at, created_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// ListByOrganizer returns all sessions created by the organizer, newest first.
func (r *PostgresRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE organizer_id = $1 ORDER BY start_time DESC`,
		organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, organizer_id, start_time, end_time, late_threshold_seconds, status, roster_ref, absent_marked_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Name, s.OrganizerID, s.StartTime, s.EndTime,
		int64(s.LateThreshold.Seconds()), string(s.Status),
		sql.NullString{String: s.RosterRef, Valid: s.RosterRef != ""},
		timeToNullTime(s.AbsentMarkedAt), s.CreatedAt)
	return err
}

// ListDue returns sessions past end_time that have not reached a terminal state.
func (r *PostgresRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE end_time <= $1 AND status NOT IN ('expired', 'stopped')`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Terminate performs the terminal-state CAS: the conditional UPDATE succeeds
// for exactly one caller, which then owns the absence-marking pass.
func (r *PostgresRepository) Terminate(ctx context.Context, id string, status domain.Status, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = $2, absent_marked_at = $3
		 WHERE id = $1 AND status NOT IN ('expired', 'stopped')`,
		id, string(status), at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var lateSeconds int64
	var status string
	var rosterRef sql.NullString
	var absentMarkedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Name, &s.OrganizerID, &s.StartTime, &s.EndTime,
		&lateSeconds, &status, &rosterRef, &absentMarkedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.LateThreshold = time.Duration(lateSeconds) * time.Second
	s.Status = domain.Status(status)
	if rosterRef.Valid {
		s.RosterRef = rosterRef.String
	}
	s.AbsentMarkedAt = nullTimeToPtr(absentMarkedAt)
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
