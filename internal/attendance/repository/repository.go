package repository

import (
	"context"
	"errors"
	"time"

	"attendance-control-plane/internal/attendance/domain"
)

// ErrDuplicate is returned by Create when a record for (session, identity)
// already exists. Backs the at-most-one invariant in every implementation,
// not just the database schema.
var ErrDuplicate = errors.New("attendance record already exists")

// Repository defines persistence for attendance records.
type Repository interface {
	GetBySessionAndIdentity(ctx context.Context, sessionID, identity string) (*domain.Record, error)
	GetBySessionAndDevice(ctx context.Context, sessionID, deviceKey string) (*domain.Record, error)
	// Create persists the record, or returns ErrDuplicate for an identity
	// that already has one in the session.
	Create(ctx context.Context, r *domain.Record) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error)
	ListIdentities(ctx context.Context, sessionID string) ([]string, error)
	CountBySession(ctx context.Context, sessionID string) (present, late, absent int, err error)
	// MarkAbsent writes an absent record for the identity unless any record
	// already exists, so redundant absence-marking passes stay idempotent.
	MarkAbsent(ctx context.Context, sessionID, identity string, at time.Time) error
}
