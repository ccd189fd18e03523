package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-control-plane/internal/token/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `value, session_id, issued_at, superseded_at, consumed, consumed_by, consumed_at`

// GetByValue returns the token with the given value, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByValue(ctx context.Context, value string) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE value = $1`, value)
	return scanToken(row)
}

// GetCurrent returns the session's active (non-superseded) token, or nil if none.
func (r *PostgresRepository) GetCurrent(ctx context.Context, sessionID string) (*domain.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE session_id = $1 AND superseded_at IS NULL`, sessionID)
	return scanToken(row)
}

// Create persists the token. The token must have Value and SessionID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (value, session_id, issued_at, superseded_at, consumed, consumed_by, consumed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.Value, t.SessionID, t.IssuedAt, timeToNullTime(t.SupersededAt),
		t.Consumed, stringToNullString(t.ConsumedBy), timeToNullTime(t.ConsumedAt))
	return err
}

// SupersedeCurrent marks the session's active token superseded. Superseded
// tokens remain readable for audit lookup.
func (r *PostgresRepository) SupersedeCurrent(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET superseded_at = $2 WHERE session_id = $1 AND superseded_at IS NULL`,
		sessionID, at)
	return err
}

// Consume flips consumed false→true with a conditional UPDATE so at most one
// caller wins under concurrent requests racing the same token.
func (r *PostgresRepository) Consume(ctx context.Context, value, deviceKey string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET consumed = TRUE, consumed_by = $2, consumed_at = $3
		 WHERE value = $1 AND consumed = FALSE`,
		value, deviceKey, at)
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

func scanToken(row rowScanner) (*domain.Token, error) {
	var t domain.Token
	var supersededAt, consumedAt sql.NullTime
	var consumedBy sql.NullString
	err := row.Scan(&t.Value, &t.SessionID, &t.IssuedAt, &supersededAt, &t.Consumed, &consumedBy, &consumedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.SupersededAt = nullTimeToPtr(supersededAt)
	t.ConsumedAt = nullTimeToPtr(consumedAt)
	if consumedBy.Valid {
		t.ConsumedBy = consumedBy.String
	}
	return &t, nil
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

func stringToNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
