package repository

import (
	"context"

	"attendance-control-plane/internal/audit/domain"
)

// Repository defines persistence for the append-only denial log.
type Repository interface {
	Create(ctx context.Context, d *domain.DenialRecord) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.DenialRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.DenialRecord, error)
}
