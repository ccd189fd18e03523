package repository

import (
	"context"
	"database/sql"

	"attendance-control-plane/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a denial log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends one denial record.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.DenialRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO denial_records (id, session_id, identity, device_key, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID,
		sql.NullString{String: d.SessionID, Valid: d.SessionID != ""},
		sql.NullString{String: d.Identity, Valid: d.Identity != ""},
		sql.NullString{String: d.DeviceKey, Valid: d.DeviceKey != ""},
		d.Reason, d.CreatedAt)
	return err
}

// ListBySession returns the newest denials for the session, up to limit.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.DenialRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, identity, device_key, reason, created_at
		 FROM denial_records WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	return collectDenials(rows)
}

// ListRecent returns the newest denials across all sessions, up to limit.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*domain.DenialRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, identity, device_key, reason, created_at
		 FROM denial_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectDenials(rows)
}

func collectDenials(rows *sql.Rows) ([]*domain.DenialRecord, error) {
	defer rows.Close()
	var out []*domain.DenialRecord
	for rows.Next() {
		var d domain.DenialRecord
		var sessionID, identity, deviceKey sql.NullString
		if err := rows.Scan(&d.ID, &sessionID, &identity, &deviceKey, &d.Reason, &d.CreatedAt); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			d.SessionID = sessionID.String
		}
		if identity.Valid {
			d.Identity = identity.String
		}
		if deviceKey.Valid {
			d.DeviceKey = deviceKey.String
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
