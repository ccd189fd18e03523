package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"attendance-control-plane/internal/token/repository"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestManager() *Manager {
	return NewManager(repository.NewMemoryRepository(), fixedClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)})
}

func TestManager_IssueAndValidate(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	tok, err := m.Issue(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.Value == "" || tok.SessionID != "sess-1" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if err := m.Validate(ctx, "sess-1", tok.Value); err != nil {
		t.Errorf("fresh token should validate, got %v", err)
	}
	if err := m.Validate(ctx, "sess-2", tok.Value); err != ErrInvalid {
		t.Errorf("wrong session: want ErrInvalid, got %v", err)
	}
	if err := m.Validate(ctx, "sess-1", "nope"); err != ErrInvalid {
		t.Errorf("unknown value: want ErrInvalid, got %v", err)
	}
}

func TestManager_IssueSupersedes(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first, err := m.Issue(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := m.Issue(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if first.Value == second.Value {
		t.Fatal("rotation must produce a new value")
	}
	if err := m.Validate(ctx, "sess-1", first.Value); err != ErrSuperseded {
		t.Errorf("old token: want ErrSuperseded, got %v", err)
	}
	if err := m.Validate(ctx, "sess-1", second.Value); err != nil {
		t.Errorf("new token should validate, got %v", err)
	}

	cur, err := m.Current(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur == nil || cur.Value != second.Value {
		t.Errorf("Current should be the rotated token")
	}

	// Superseded tokens stay resolvable for audit.
	old, err := m.Resolve(ctx, first.Value)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if old == nil || old.SupersededAt == nil {
		t.Error("superseded token must remain resolvable with SupersededAt set")
	}
}

func TestManager_ConsumeOnce(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	tok, err := m.Issue(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ok, err := m.Consume(ctx, tok.Value, "dev-a")
	if err != nil || !ok {
		t.Fatalf("first consume should win: ok=%v err=%v", ok, err)
	}
	ok, err = m.Consume(ctx, tok.Value, "dev-b")
	if err != nil {
		t.Fatalf("second consume errored: %v", err)
	}
	if ok {
		t.Fatal("second consume must lose")
	}
	if err := m.Validate(ctx, "sess-1", tok.Value); err != ErrUsed {
		t.Errorf("consumed token: want ErrUsed, got %v", err)
	}

	got, _ := m.Resolve(ctx, tok.Value)
	if got.ConsumedBy != "dev-a" {
		t.Errorf("ConsumedBy = %q, want dev-a", got.ConsumedBy)
	}
}

func TestManager_ConcurrentConsume(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	tok, err := m.Issue(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := m.Consume(ctx, tok.Value, "dev")
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			if ok {
				wins <- "win"
			}
		}(i)
	}
	wg.Wait()
	close(wins)
	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("exactly one concurrent consume must win, got %d", count)
	}
}
