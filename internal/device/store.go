// Package device enforces per-device check-in quotas over rolling time
// windows. It answers "is this device key over quota" without ever owning
// what a device is: the key is whatever the fingerprint aggregator derived.
package device

import (
	"context"
	"time"

	"attendance-control-plane/internal/device/domain"
	"attendance-control-plane/internal/device/repository"
)

// PolicyStore answers quota questions for device keys. All mutation goes
// through CheckAndRecord, which is atomic per (deviceKey, scope).
type PolicyStore struct {
	repo repository.Repository
}

// NewPolicyStore returns a PolicyStore backed by the given repository.
func NewPolicyStore(repo repository.Repository) *PolicyStore {
	return &PolicyStore{repo: repo}
}

// CheckAndRecord counts one use of deviceKey in scope if quota permits.
// The attempt that would exceed maxUses is rejected without being counted.
func (s *PolicyStore) CheckAndRecord(ctx context.Context, deviceKey, scope string, maxUses int, window time.Duration, now time.Time) (domain.Decision, error) {
	return s.repo.CheckAndRecord(ctx, deviceKey, scope, maxUses, window, now)
}

// Usage returns the current usage record for dashboards, or nil if none.
func (s *PolicyStore) Usage(ctx context.Context, deviceKey, scope string) (*domain.UsageRecord, error) {
	return s.repo.Get(ctx, deviceKey, scope)
}
