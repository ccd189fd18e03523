package repository

import (
	"context"
	"sync"

	"attendance-control-plane/internal/organizer/domain"
)

// MemoryRepository is an in-memory Repository used in tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.Organizer
	byEmail map[string]*domain.Organizer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*domain.Organizer),
		byEmail: make(map[string]*domain.Organizer),
	}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Organizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Organizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) Create(_ context.Context, o *domain.Organizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.byID[o.ID] = &cp
	r.byEmail[o.Email] = &cp
	return nil
}
