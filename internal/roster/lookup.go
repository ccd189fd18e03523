// Package roster answers enrollment questions for the check-in core. The
// roster itself is owned elsewhere; this package only reads it.
package roster

import (
	"context"

	"attendance-control-plane/internal/roster/domain"
	"attendance-control-plane/internal/roster/repository"
)

// Lookup resolves whether a claimed identity is eligible for a session.
type Lookup struct {
	repo repository.Repository
}

// NewLookup returns a Lookup backed by the given repository.
func NewLookup(repo repository.Repository) *Lookup {
	return &Lookup{repo: repo}
}

// IsEnrolled resolves the claimed identity against the session's rosters.
// A session's own roster, when present, overrides the class roster it
// references.
func (l *Lookup) IsEnrolled(ctx context.Context, sessionID, identity string) (domain.Membership, error) {
	student, err := l.repo.GetStudent(ctx, identity)
	if err != nil {
		return domain.Membership{}, err
	}
	if student == nil {
		return domain.Membership{Status: domain.StatusUnknownStudent}, nil
	}

	hasOwn, err := l.repo.HasSessionRoster(ctx, sessionID)
	if err != nil {
		return domain.Membership{}, err
	}
	if hasOwn {
		in, err := l.repo.IsInSessionRoster(ctx, sessionID, identity)
		if err != nil {
			return domain.Membership{}, err
		}
		if !in {
			return domain.Membership{Status: domain.StatusNotInSession, DisplayName: student.DisplayName}, nil
		}
		return domain.Membership{Status: domain.StatusEnrolled, DisplayName: student.DisplayName}, nil
	}

	ref, err := l.repo.SessionRosterRef(ctx, sessionID)
	if err != nil {
		return domain.Membership{}, err
	}
	if ref == "" {
		// No roster configured for this session at all.
		return domain.Membership{Status: domain.StatusNotInClass, DisplayName: student.DisplayName}, nil
	}
	in, err := l.repo.IsInClassRoster(ctx, ref, identity)
	if err != nil {
		return domain.Membership{}, err
	}
	if !in {
		return domain.Membership{Status: domain.StatusNotInClass, DisplayName: student.DisplayName}, nil
	}
	return domain.Membership{Status: domain.StatusEnrolled, DisplayName: student.DisplayName}, nil
}

// AllIdentities returns every identity eligible for the session; used only by
// the absence-marking pass.
func (l *Lookup) AllIdentities(ctx context.Context, sessionID string) ([]string, error) {
	return l.repo.AllIdentities(ctx, sessionID)
}
