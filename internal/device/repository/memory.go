package repository

import (
	"context"
	"sync"
	"time"

	"attendance-control-plane/internal/device/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode. The
// check-and-increment runs under one mutex, matching the single-writer
// guarantee of the Postgres implementation.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[usageKey]*domain.UsageRecord
}

type usageKey struct {
	deviceKey string
	scope     string
}

// NewMemoryRepository returns an empty in-memory device usage repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[usageKey]*domain.UsageRecord)}
}

func (r *MemoryRepository) CheckAndRecord(ctx context.Context, deviceKey, scope string, maxUses int, window time.Duration, now time.Time) (domain.Decision, error) {
	if maxUses < 1 {
		return domain.Decision{Allowed: false, Remaining: 0}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := usageKey{deviceKey: deviceKey, scope: scope}
	rec, ok := r.m[k]
	if !ok || now.Sub(rec.WindowStart) >= window {
		rec = &domain.UsageRecord{DeviceKey: deviceKey, Scope: scope, WindowStart: now}
		r.m[k] = rec
	}
	if rec.Count+1 > maxUses {
		return domain.Decision{Allowed: false, Remaining: 0}, nil
	}
	rec.Count++
	rec.UpdatedAt = now
	return domain.Decision{Allowed: true, Remaining: maxUses - rec.Count}, nil
}

func (r *MemoryRepository) Get(ctx context.Context, deviceKey, scope string) (*domain.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[usageKey{deviceKey: deviceKey, scope: scope}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}
