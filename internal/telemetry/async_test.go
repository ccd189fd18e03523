package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"attendance-control-plane/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (m *mockEventEmitter) Emit(_ context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventEmitter) getEvents() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	event := &domain.Event{SessionID: "sess-1", EventType: domain.EventCheckinAccepted}

	// Should not panic
	EmitAsync(nil, context.Background(), event)
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}

	EmitAsync(emitter, context.Background(), nil)

	// Give goroutine time to run (if it starts)
	time.Sleep(10 * time.Millisecond)

	if got := emitter.getEvents(); len(got) != 0 {
		t.Errorf("expected 0 events, got %d", len(got))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{}
	event := &domain.Event{
		SessionID: "sess-1",
		Identity:  "s001",
		EventType: domain.EventCheckinAccepted,
		Source:    "test",
	}

	EmitAsync(emitter, context.Background(), event)

	// Wait for goroutine to complete
	time.Sleep(100 * time.Millisecond)

	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].SessionID != "sess-1" {
		t.Errorf("event session_id = %q, want %q", events[0].SessionID, "sess-1")
	}
	if events[0].EventType != domain.EventCheckinAccepted {
		t.Errorf("event type = %q, want %q", events[0].EventType, domain.EventCheckinAccepted)
	}
}
