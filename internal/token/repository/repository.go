package repository

import (
	"context"
	"time"

	"attendance-control-plane/internal/token/domain"
)

// Repository defines persistence for session tokens.
type Repository interface {
	GetByValue(ctx context.Context, value string) (*domain.Token, error)
	GetCurrent(ctx context.Context, sessionID string) (*domain.Token, error)
	Create(ctx context.Context, t *domain.Token) error
	// SupersedeCurrent marks the session's current token superseded at the
	// given time. No-op when the session has no active token.
	SupersedeCurrent(ctx context.Context, sessionID string, at time.Time) error
	// Consume atomically flips consumed false→true for the token with the
	// given value, recording the device key and time. Returns true only for
	// the single caller that wins the transition; false when the token is
	// already consumed or unknown.
	Consume(ctx context.Context, value, deviceKey string, at time.Time) (bool, error)
}
