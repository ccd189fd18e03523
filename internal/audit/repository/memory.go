package repository

import (
	"context"
	"sync"

	"attendance-control-plane/internal/audit/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu      sync.Mutex
	records []*domain.DenialRecord
}

// NewMemoryRepository returns an empty in-memory denial log.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, d *domain.DenialRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.records = append(r.records, &cp)
	return nil
}

func (r *MemoryRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.DenialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DenialRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].SessionID == sessionID {
			cp := *r.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]*domain.DenialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DenialRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.records[i]
		out = append(out, &cp)
	}
	return out, nil
}
