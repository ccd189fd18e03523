package repository

import (
	"context"

	"attendance-control-plane/internal/roster/domain"
)

// Repository defines read access to roster data. The core never writes here;
// roster ownership stays with the external roster surface (cmd/seed in dev).
type Repository interface {
	GetStudent(ctx context.Context, identity string) (*domain.Student, error)
	// SessionRosterRef returns the class roster reference of the session, or
	// "" when the session has none configured.
	SessionRosterRef(ctx context.Context, sessionID string) (string, error)
	// HasSessionRoster reports whether the session carries its own explicit
	// participant list, which then overrides the class roster.
	HasSessionRoster(ctx context.Context, sessionID string) (bool, error)
	IsInSessionRoster(ctx context.Context, sessionID, identity string) (bool, error)
	IsInClassRoster(ctx context.Context, rosterRef, identity string) (bool, error)
	// AllIdentities returns every identity eligible for the session: the
	// session roster when present, otherwise the class roster.
	AllIdentities(ctx context.Context, sessionID string) ([]string, error)
}
