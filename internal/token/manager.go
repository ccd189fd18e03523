// Package token issues, validates, and consumes single-use session tokens.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"attendance-control-plane/internal/clock"
	"attendance-control-plane/internal/token/domain"
	"attendance-control-plane/internal/token/repository"
)

// Sentinel errors for token validation; the arbiter maps them to denial reasons.
var (
	// ErrInvalid is returned when the value does not match any token of the session.
	ErrInvalid = errors.New("invalid token")
	// ErrUsed is returned when the token has already been consumed.
	ErrUsed = errors.New("token already used")
	// ErrSuperseded is returned when a newer token has been issued for the session.
	ErrSuperseded = errors.New("token superseded")
)

// Manager owns the token lineage of sessions: one active token at a time,
// prior tokens retained read-only for audit.
type Manager struct {
	repo  repository.Repository
	clock clock.Clock
}

// NewManager returns a Manager backed by the given repository and clock.
func NewManager(repo repository.Repository, clk clock.Clock) *Manager {
	return &Manager{repo: repo, clock: clk}
}

// Issue generates a fresh opaque token for the session and supersedes any
// prior active token. The superseded token remains valid for audit lookup but
// fails Validate with ErrSuperseded.
func (m *Manager) Issue(ctx context.Context, sessionID string) (*domain.Token, error) {
	now := m.clock.Now()
	if err := m.repo.SupersedeCurrent(ctx, sessionID, now); err != nil {
		return nil, err
	}
	value, err := newValue()
	if err != nil {
		return nil, err
	}
	t := &domain.Token{
		Value:     value,
		SessionID: sessionID,
		IssuedAt:  now,
	}
	if err := m.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Resolve returns the token with the given value, or nil if unknown.
func (m *Manager) Resolve(ctx context.Context, value string) (*domain.Token, error) {
	return m.repo.GetByValue(ctx, value)
}

// Current returns the session's active token, or nil if none has been issued.
func (m *Manager) Current(ctx context.Context, sessionID string) (*domain.Token, error) {
	return m.repo.GetCurrent(ctx, sessionID)
}

// Validate checks that value is the session's current, unconsumed token.
// Returns nil on success, or ErrInvalid, ErrSuperseded, or ErrUsed.
func (m *Manager) Validate(ctx context.Context, sessionID, value string) error {
	t, err := m.repo.GetByValue(ctx, value)
	if err != nil {
		return err
	}
	if t == nil || t.SessionID != sessionID {
		return ErrInvalid
	}
	if t.SupersededAt != nil {
		return ErrSuperseded
	}
	if t.Consumed {
		return ErrUsed
	}
	return nil
}

// Consume atomically marks the token consumed by deviceKey. Returns false when
// another request already consumed it; callers treat that as a token_used
// denial, not a failure.
func (m *Manager) Consume(ctx context.Context, value, deviceKey string) (bool, error) {
	return m.repo.Consume(ctx, value, deviceKey, m.clock.Now())
}

func newValue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
