package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"attendance-control-plane/internal/device/domain"
	"attendance-control-plane/internal/device/repository"
)

func TestPolicyStore_QuotaMonotonicity(t *testing.T) {
	s := NewPolicyStore(repository.NewMemoryRepository())
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	window := time.Hour

	const maxUses = 3
	for i := 1; i <= maxUses; i++ {
		d, err := s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, maxUses, window, now)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("check %d within quota should be allowed", i)
		}
		if d.Remaining != maxUses-i {
			t.Errorf("check %d: remaining = %d, want %d", i, d.Remaining, maxUses-i)
		}
	}

	d, err := s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, maxUses, window, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("over-quota check: %v", err)
	}
	if d.Allowed {
		t.Fatal("the (K+1)-th check within the window must be denied")
	}
}

func TestPolicyStore_DeniedAttemptNotCounted(t *testing.T) {
	s := NewPolicyStore(repository.NewMemoryRepository())
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	window := time.Hour

	for i := 0; i < 5; i++ {
		_, _ = s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, 1, window, now)
	}
	rec, err := s.Usage(ctx, "dev-a", domain.GlobalScope)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if rec.Count != 1 {
		t.Errorf("denied attempts must not creep the counter: count = %d, want 1", rec.Count)
	}
}

func TestPolicyStore_WindowReset(t *testing.T) {
	s := NewPolicyStore(repository.NewMemoryRepository())
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	window := time.Hour

	if d, _ := s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, 1, window, now); !d.Allowed {
		t.Fatal("first use should be allowed")
	}
	if d, _ := s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, 1, window, now.Add(30*time.Minute)); d.Allowed {
		t.Fatal("second use inside the window should be denied")
	}
	d, err := s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, 1, window, now.Add(window))
	if err != nil {
		t.Fatalf("post-window check: %v", err)
	}
	if !d.Allowed {
		t.Fatal("window elapsed: counter should lazily reset and allow")
	}
	if d.Remaining != 0 {
		t.Errorf("reset window remaining = %d, want 0", d.Remaining)
	}
}

func TestPolicyStore_ScopesIndependent(t *testing.T) {
	s := NewPolicyStore(repository.NewMemoryRepository())
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if d, _ := s.CheckAndRecord(ctx, "dev-a", domain.SessionScope("s1"), 1, time.Hour, now); !d.Allowed {
		t.Fatal("session s1 first use should pass")
	}
	if d, _ := s.CheckAndRecord(ctx, "dev-a", domain.SessionScope("s2"), 1, time.Hour, now); !d.Allowed {
		t.Fatal("a different session scope must not share the counter")
	}
	if d, _ := s.CheckAndRecord(ctx, "dev-b", domain.SessionScope("s1"), 1, time.Hour, now); !d.Allowed {
		t.Fatal("a different device key must not share the counter")
	}
}

func TestPolicyStore_ConcurrentChecks(t *testing.T) {
	s := NewPolicyStore(repository.NewMemoryRepository())
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	const n = 32
	const maxUses = 5
	var wg sync.WaitGroup
	allowed := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.CheckAndRecord(ctx, "dev-a", domain.GlobalScope, maxUses, time.Hour, now)
			if err != nil {
				t.Errorf("CheckAndRecord: %v", err)
				return
			}
			if d.Allowed {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)
	count := 0
	for range allowed {
		count++
	}
	if count != maxUses {
		t.Fatalf("exactly %d concurrent checks may pass, got %d", maxUses, count)
	}
}
