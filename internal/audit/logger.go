// Package audit keeps the append-only denial trail for rejected check-ins.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/audit/domain"
	auditrepo "attendance-control-plane/internal/audit/repository"
)

// DenialLogger writes a single denial record with an explicit reason code.
// LogDenial is best-effort: persistence failures are logged and do not affect
// the caller, so a flaky audit store can never turn a denial into a crash.
type DenialLogger interface {
	LogDenial(ctx context.Context, sessionID, identity, deviceKey, reason string)
}

// Logger implements DenialLogger using the denial repository.
type Logger struct {
	repo auditrepo.Repository
	nowF func() time.Time
}

// NewLogger returns a DenialLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo, nowF: func() time.Time { return time.Now().UTC() }}
}

// LogDenial appends one denial record. Best-effort: errors are logged and not returned.
func (l *Logger) LogDenial(ctx context.Context, sessionID, identity, deviceKey, reason string) {
	if l.repo == nil {
		return
	}
	entry := &domain.DenialRecord{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Identity:  identity,
		DeviceKey: deviceKey,
		Reason:    reason,
		CreatedAt: l.nowF(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log denial %s: %v", reason, err)
	}
}
