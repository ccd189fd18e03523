package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendance-control-plane/internal/attendance/domain"
)

func record(id, identity string) *domain.Record {
	return &domain.Record{
		ID:        id,
		SessionID: "sess-1",
		Identity:  identity,
		DeviceKey: "dev-" + identity,
		Outcome:   domain.OutcomePresent,
		Timestamp: time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC),
	}
}

func TestMemoryCreateRejectsDuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	if err := r.Create(ctx, record("rec-1", "s001")); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := r.Create(ctx, record("rec-2", "s001")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second Create = %v, want ErrDuplicate", err)
	}

	records, err := r.ListBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records for (sess-1, s001) = %d, want 1", len(records))
	}
}

func TestMemoryCreateAllowsDistinctIdentities(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	if err := r.Create(ctx, record("rec-1", "s001")); err != nil {
		t.Fatalf("Create s001: %v", err)
	}
	if err := r.Create(ctx, record("rec-2", "s002")); err != nil {
		t.Fatalf("Create s002: %v", err)
	}

	present, _, _, err := r.CountBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CountBySession: %v", err)
	}
	if present != 2 {
		t.Fatalf("present = %d, want 2", present)
	}
}

func TestMemoryMarkAbsentIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	at := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	if err := r.Create(ctx, record("rec-1", "s001")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Already-recorded identities are skipped; unknown ones get one absent record.
	if err := r.MarkAbsent(ctx, "sess-1", "s001", at); err != nil {
		t.Fatalf("MarkAbsent s001: %v", err)
	}
	if err := r.MarkAbsent(ctx, "sess-1", "s002", at); err != nil {
		t.Fatalf("MarkAbsent s002: %v", err)
	}
	if err := r.MarkAbsent(ctx, "sess-1", "s002", at); err != nil {
		t.Fatalf("second MarkAbsent s002: %v", err)
	}

	present, _, absent, err := r.CountBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CountBySession: %v", err)
	}
	if present != 1 || absent != 1 {
		t.Fatalf("present/absent = %d/%d, want 1/1", present, absent)
	}
}
