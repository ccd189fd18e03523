package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"attendance-control-plane/internal/attendance/domain"
)

// Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an attendance repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, session_id, identity, device_key, token_value, outcome, recorded_at`

// GetBySessionAndIdentity returns the record for (session, identity), or nil if none.
func (r *PostgresRepository) GetBySessionAndIdentity(ctx context.Context, sessionID, identity string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE session_id = $1 AND identity = $2`,
		sessionID, identity)
	return scanRecord(row)
}

// GetBySessionAndDevice returns the non-absent record for (session, device key), or nil if none.
func (r *PostgresRepository) GetBySessionAndDevice(ctx context.Context, sessionID, deviceKey string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE session_id = $1 AND device_key = $2 AND outcome <> 'absent'`,
		sessionID, deviceKey)
	return scanRecord(row)
}

// Create persists the record. The unique constraint on (session_id, identity)
// backs the at-most-one invariant even if a racing read missed a concurrent
// insert; a violation surfaces as ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_records (id, session_id, identity, device_key, token_value, outcome, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.SessionID, rec.Identity,
		sql.NullString{String: rec.DeviceKey, Valid: rec.DeviceKey != ""},
		sql.NullString{String: rec.TokenValue, Valid: rec.TokenValue != ""},
		string(rec.Outcome), rec.Timestamp)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// ListBySession returns the session's records ordered by time.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE session_id = $1 ORDER BY recorded_at`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListIdentities returns the identities with any record for the session.
func (r *PostgresRepository) ListIdentities(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT identity FROM attendance_records WHERE session_id = $1`, sessionID)
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

// CountBySession returns per-outcome counts for the session.
func (r *PostgresRepository) CountBySession(ctx context.Context, sessionID string) (present, late, absent int, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM attendance_records WHERE session_id = $1 GROUP BY outcome`,
		sessionID)
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return 0, 0, 0, err
		}
		switch domain.Outcome(outcome) {
		case domain.OutcomePresent:
			present = n
		case domain.OutcomeLate:
			late = n
		case domain.OutcomeAbsent:
			absent = n
		}
	}
	return present, late, absent, rows.Err()
}

// MarkAbsent inserts an absent record unless the identity already has one for
// the session; ON CONFLICT keeps redundant passes idempotent.
func (r *PostgresRepository) MarkAbsent(ctx context.Context, sessionID, identity string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_records (id, session_id, identity, device_key, token_value, outcome, recorded_at)
		 VALUES ($1, $2, $3, NULL, NULL, 'absent', $4)
		 ON CONFLICT (session_id, identity) DO NOTHING`,
		uuid.New().String(), sessionID, identity, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var deviceKey, tokenValue sql.NullString
	var outcome string
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Identity, &deviceKey, &tokenValue, &outcome, &rec.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if deviceKey.Valid {
		rec.DeviceKey = deviceKey.String
	}
	if tokenValue.Valid {
		rec.TokenValue = tokenValue.String
	}
	rec.Outcome = domain.Outcome(outcome)
	return &rec, nil
}
