package engine

import (
	"context"
	"testing"
	"time"

	"attendance-control-plane/internal/policy/domain"
	"attendance-control-plane/internal/policy/repository"
)

func testDefaults() Defaults {
	return Defaults{
		DeviceBlockingEnabled: true,
		MaxUses:               1,
		WindowSeconds:         3600,
		Scope:                 "session",
		ConsistencyMin:        0,
	}
}

func TestHealthCheck(t *testing.T) {
	e := NewOPAEvaluator(repository.NewMemoryRepository())
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
}

func TestEvaluateCheckinDefaultsPassThrough(t *testing.T) {
	e := NewOPAEvaluator(repository.NewMemoryRepository())

	got, err := e.EvaluateCheckin(context.Background(), testDefaults(), Input{
		SessionID:        "sess-1",
		OrganizerID:      "org-1",
		Identity:         "s001",
		DeviceKey:        "ab12cd34",
		ConsistencyScore: 1.0,
		Phase:            "present-window",
	})
	if err != nil {
		t.Fatalf("EvaluateCheckin() error = %v", err)
	}
	if !got.DeviceBlockingEnabled {
		t.Error("DeviceBlockingEnabled = false, want true")
	}
	if got.MaxUses != 1 {
		t.Errorf("MaxUses = %d, want 1", got.MaxUses)
	}
	if got.WindowSeconds != 3600 {
		t.Errorf("WindowSeconds = %d, want 3600", got.WindowSeconds)
	}
	if got.Scope != "session" {
		t.Errorf("Scope = %q, want %q", got.Scope, "session")
	}
}

func TestEvaluateCheckinOrganizerOverride(t *testing.T) {
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()
	err := repo.Create(context.Background(), &domain.Policy{
		ID:          "pol-1",
		OrganizerID: "org-1",
		Name:        "shared lab machines",
		Rules: `package acp.checkin

default device_blocking_enabled = true
default consistency_min = 0

max_uses = 3
window_seconds = 600
scope = "global"
device_blocking_enabled = input.config.device_blocking_enabled if {
	input.config.device_blocking_enabled != null
}
consistency_min = 0.5
`,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	e := NewOPAEvaluator(repo)
	got, err := e.EvaluateCheckin(context.Background(), testDefaults(), Input{
		SessionID:   "sess-1",
		OrganizerID: "org-1",
	})
	if err != nil {
		t.Fatalf("EvaluateCheckin() error = %v", err)
	}
	if got.MaxUses != 3 {
		t.Errorf("MaxUses = %d, want 3", got.MaxUses)
	}
	if got.WindowSeconds != 600 {
		t.Errorf("WindowSeconds = %d, want 600", got.WindowSeconds)
	}
	if got.Scope != "global" {
		t.Errorf("Scope = %q, want %q", got.Scope, "global")
	}
	if got.ConsistencyMin != 0.5 {
		t.Errorf("ConsistencyMin = %v, want 0.5", got.ConsistencyMin)
	}
}

func TestEvaluateCheckinBadPolicyFallsBackToDefaults(t *testing.T) {
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()
	if err := repo.Create(context.Background(), &domain.Policy{
		ID:          "pol-bad",
		OrganizerID: "org-1",
		Name:        "broken",
		Rules:       `package acp.checkin, this is not rego`,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	e := NewOPAEvaluator(repo)
	got, err := e.EvaluateCheckin(context.Background(), testDefaults(), Input{
		SessionID:   "sess-1",
		OrganizerID: "org-1",
	})
	if err != nil {
		t.Fatalf("EvaluateCheckin() error = %v", err)
	}
	want := testDefaults()
	if got.MaxUses != want.MaxUses || got.WindowSeconds != want.WindowSeconds || got.Scope != want.Scope {
		t.Errorf("fallback result = %+v, want defaults %+v", got, want)
	}
}

func TestEvaluateCheckinNoOrganizerUsesDefaultPolicy(t *testing.T) {
	e := NewOPAEvaluator(repository.NewMemoryRepository())
	got, err := e.EvaluateCheckin(context.Background(), testDefaults(), Input{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("EvaluateCheckin() error = %v", err)
	}
	if got.MaxUses != 1 || got.Scope != "session" {
		t.Errorf("result = %+v, want configured defaults", got)
	}
}
