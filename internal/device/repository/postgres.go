package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-control-plane/internal/device/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device usage repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CheckAndRecord runs the window check inside a transaction with the usage row
// locked, so concurrent checks on the same (deviceKey, scope) serialize and at
// most maxUses of them are counted per window. The row is created with a zero
// count first; FOR UPDATE cannot lock an absent row, and two first-use racers
// inserting directly would leave the loser with a unique violation instead of
// a quota decision.
func (r *PostgresRepository) CheckAndRecord(ctx context.Context, deviceKey, scope string, maxUses int, window time.Duration, now time.Time) (domain.Decision, error) {
	if maxUses < 1 {
		return domain.Decision{Allowed: false, Remaining: 0}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO device_usage (device_key, scope, window_start, count, updated_at)
		 VALUES ($1, $2, $3, 0, $3)
		 ON CONFLICT (device_key, scope) DO NOTHING`,
		deviceKey, scope, now)
	if err != nil {
		return domain.Decision{}, err
	}

	var windowStart time.Time
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT window_start, count FROM device_usage
		 WHERE device_key = $1 AND scope = $2 FOR UPDATE`,
		deviceKey, scope).Scan(&windowStart, &count)
	if err != nil {
		return domain.Decision{}, err
	}

	if now.Sub(windowStart) >= window {
		windowStart = now
		count = 0
	}
	if count+1 > maxUses {
		// Over quota: leave the counter untouched so the rejected attempt
		// does not eat into future windows.
		if err := tx.Commit(); err != nil {
			return domain.Decision{}, err
		}
		return domain.Decision{Allowed: false, Remaining: 0}, nil
	}
	count++
	_, err = tx.ExecContext(ctx,
		`UPDATE device_usage SET window_start = $3, count = $4, updated_at = $5
		 WHERE device_key = $1 AND scope = $2`,
		deviceKey, scope, windowStart, count, now)
	if err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	return domain.Decision{Allowed: true, Remaining: maxUses - count}, nil
}

// Get returns the usage record for (deviceKey, scope), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, deviceKey, scope string) (*domain.UsageRecord, error) {
	var rec domain.UsageRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT device_key, scope, window_start, count, updated_at
		 FROM device_usage WHERE device_key = $1 AND scope = $2`,
		deviceKey, scope).
		Scan(&rec.DeviceKey, &rec.Scope, &rec.WindowStart, &rec.Count, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
