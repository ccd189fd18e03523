package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/attendance/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string][]*domain.Record // session_id -> records
}

// NewMemoryRepository returns an empty in-memory attendance repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string][]*domain.Record)}
}

func (r *MemoryRepository) GetBySessionAndIdentity(ctx context.Context, sessionID, identity string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.m[sessionID] {
		if rec.Identity == identity {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetBySessionAndDevice(ctx context.Context, sessionID, deviceKey string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.m[sessionID] {
		if rec.DeviceKey == deviceKey && rec.Outcome != domain.OutcomeAbsent {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m[rec.SessionID] {
		if existing.Identity == rec.Identity {
			return ErrDuplicate
		}
	}
	cp := *rec
	r.m[cp.SessionID] = append(r.m[cp.SessionID], &cp)
	return nil
}

func (r *MemoryRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.m[sessionID]
	out := make([]*domain.Record, len(records))
	for i, rec := range records {
		cp := *rec
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryRepository) ListIdentities(ctx context.Context, sessionID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.m[sessionID] {
		out = append(out, rec.Identity)
	}
	return out, nil
}

func (r *MemoryRepository) CountBySession(ctx context.Context, sessionID string) (present, late, absent int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.m[sessionID] {
		switch rec.Outcome {
		case domain.OutcomePresent:
			present++
		case domain.OutcomeLate:
			late++
		case domain.OutcomeAbsent:
			absent++
		}
	}
	return present, late, absent, nil
}

func (r *MemoryRepository) MarkAbsent(ctx context.Context, sessionID, identity string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.m[sessionID] {
		if rec.Identity == identity {
			return nil
		}
	}
	r.m[sessionID] = append(r.m[sessionID], &domain.Record{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Identity:  identity,
		Outcome:   domain.OutcomeAbsent,
		Timestamp: at,
	})
	return nil
}
