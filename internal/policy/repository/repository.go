package repository

import (
	"context"

	"attendance-control-plane/internal/policy/domain"
)

// Repository defines persistence for check-in policies.
type Repository interface {
	GetEnabledByOrganizer(ctx context.Context, organizerID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
}
