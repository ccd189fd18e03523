package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckinMetrics counts check-in verdicts. A nil *CheckinMetrics is a valid
// no-op receiver so handlers never need to nil-check.
type CheckinMetrics struct {
	accepted metric.Int64Counter
	denied   metric.Int64Counter
}

// NewCheckinMetrics registers the check-in counters on the given meter provider.
func NewCheckinMetrics(provider metric.MeterProvider) (*CheckinMetrics, error) {
	meter := provider.Meter("acp.checkin")
	accepted, err := meter.Int64Counter("checkin.accepted",
		metric.WithDescription("Accepted check-in requests"))
	if err != nil {
		return nil, err
	}
	denied, err := meter.Int64Counter("checkin.denied",
		metric.WithDescription("Denied check-in requests by reason code"))
	if err != nil {
		return nil, err
	}
	return &CheckinMetrics{accepted: accepted, denied: denied}, nil
}

// RecordAccept counts one accepted check-in with its outcome (present/late).
func (m *CheckinMetrics) RecordAccept(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.accepted.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDeny counts one denied check-in with its reason code.
func (m *CheckinMetrics) RecordDeny(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.denied.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
