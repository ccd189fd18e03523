package otel

import (
	"context"
	"testing"
	"time"

	sdklog "go.opentelemetry.io/otel/sdk/log"

	"attendance-control-plane/internal/telemetry/domain"
)

func TestNewEventEmitter_NilProvider(t *testing.T) {
	emitter := NewEventEmitter(nil)
	if emitter == nil {
		t.Fatal("emitter should not be nil")
	}
	err := emitter.Emit(context.Background(), &domain.Event{EventType: domain.EventCheckinAccepted})
	if err != nil {
		t.Errorf("noop Emit() error = %v", err)
	}
}

func TestEmit_NilEvent(t *testing.T) {
	emitter := NewEventEmitter(sdklog.NewLoggerProvider())
	if err := emitter.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil) error = %v", err)
	}
}

func TestEmit_FullEvent(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer provider.Shutdown(context.Background())

	emitter := NewEventEmitter(provider)
	err := emitter.Emit(context.Background(), &domain.Event{
		SessionID:   "sess-1",
		OrganizerID: "org-1",
		Identity:    "s001",
		DeviceKey:   "ab12cd34",
		EventType:   domain.EventCheckinDenied,
		Source:      "server",
		Metadata:    map[string]string{"reason": "token_used"},
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Errorf("Emit() error = %v", err)
	}
}
