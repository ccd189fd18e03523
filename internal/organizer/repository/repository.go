package repository

import (
	"context"

	"attendance-control-plane/internal/organizer/domain"
)

// Repository defines persistence for organizer accounts.
// GetByEmail and GetByID return (nil, nil) when no organizer matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Organizer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Organizer, error)
	Create(ctx context.Context, o *domain.Organizer) error
}
