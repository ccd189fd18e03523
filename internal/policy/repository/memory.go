package repository

import (
	"context"
	"sync"

	"attendance-control-plane/internal/policy/domain"
)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu       sync.Mutex
	policies map[string]*domain.Policy
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{policies: make(map[string]*domain.Policy)}
}

func (r *MemoryRepository) GetEnabledByOrganizer(_ context.Context, organizerID string) ([]*domain.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Policy
	for _, p := range r.policies {
		if p.OrganizerID == organizerID && p.Enabled {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, p *domain.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.policies[p.ID] = &cp
	return nil
}
