package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"attendance-control-plane/internal/session/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.OrganizerID == organizerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[cp.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListDue(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if !s.Status.Terminal() && !s.EndTime.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Terminate mirrors the Postgres conditional UPDATE: the transition succeeds
// only while the session is non-terminal, so one of N concurrent callers wins.
func (r *MemoryRepository) Terminate(ctx context.Context, id string, status domain.Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || s.Status.Terminal() {
		return false, nil
	}
	s.Status = status
	at2 := at
	s.AbsentMarkedAt = &at2
	return true, nil
}
