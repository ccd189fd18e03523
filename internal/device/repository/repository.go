package repository

import (
	"context"
	"time"

	"attendance-control-plane/internal/device/domain"
)

// Repository defines persistence for device usage windows. CheckAndRecord is
// the contended critical section of the quota policy and must be atomic per
// (deviceKey, scope): under concurrent calls each increment is observed by
// every later caller.
type Repository interface {
	// CheckAndRecord applies the windowed counter algorithm: reset the window
	// if elapsed, then count the use only if it stays within maxUses. The
	// increment that would exceed maxUses is rejected and not recorded, so a
	// denied attempt never burns future quota.
	CheckAndRecord(ctx context.Context, deviceKey, scope string, maxUses int, window time.Duration, now time.Time) (domain.Decision, error)
	// Get returns the current usage record, or nil if none. Read-only; used
	// by query surfaces.
	Get(ctx context.Context, deviceKey, scope string) (*domain.UsageRecord, error)
}
