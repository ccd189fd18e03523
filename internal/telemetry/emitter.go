package telemetry

import (
	"context"
	"errors"

	"attendance-control-plane/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

type multiEmitter []EventEmitter

// NewMultiEmitter fans an event out to every given emitter. Nil emitters are
// skipped; nil is returned when none remain so callers keep the single nil check.
func NewMultiEmitter(emitters ...EventEmitter) EventEmitter {
	out := make(multiEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
