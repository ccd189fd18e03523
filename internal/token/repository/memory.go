package repository

import (
	"context"
	"sync"
	"time"

	"attendance-control-plane/internal/token/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu        sync.Mutex
	byValue   map[string]*domain.Token
	bySession map[string]string // session_id -> current token value
}

// NewMemoryRepository returns an empty in-memory token repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byValue:   make(map[string]*domain.Token),
		bySession: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByValue(ctx context.Context, value string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byValue[value]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) GetCurrent(ctx context.Context, sessionID string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.bySession[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *r.byValue[value]
	return &cp, nil
}

func (r *MemoryRepository) Create(ctx context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.byValue[cp.Value] = &cp
	if cp.SupersededAt == nil {
		r.bySession[cp.SessionID] = cp.Value
	}
	return nil
}

func (r *MemoryRepository) SupersedeCurrent(ctx context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.bySession[sessionID]
	if !ok {
		return nil
	}
	if t := r.byValue[value]; t != nil && t.SupersededAt == nil {
		at := at
		t.SupersededAt = &at
	}
	delete(r.bySession, sessionID)
	return nil
}

// Consume performs the check-and-set under the repository mutex, so exactly
// one concurrent caller observes the false→true transition.
func (r *MemoryRepository) Consume(ctx context.Context, value, deviceKey string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byValue[value]
	if !ok || t.Consumed {
		return false, nil
	}
	t.Consumed = true
	t.ConsumedBy = deviceKey
	at2 := at
	t.ConsumedAt = &at2
	return true, nil
}
