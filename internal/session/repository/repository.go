package repository

import (
	"context"
	"time"

	"attendance-control-plane/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// ListDue returns non-terminal sessions whose end_time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*domain.Session, error)
	// Terminate moves the session into the given terminal status if and only
	// if it is not already terminal. Returns true for the single caller whose
	// transition won; concurrent expiry triggers collapse onto that winner.
	Terminate(ctx context.Context, id string, status domain.Status, at time.Time) (bool, error)
}
