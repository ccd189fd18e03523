// Package service runs the session lifecycle: creation, the one-way
// transitions into expired/stopped, and the absence-marking pass that the
// terminal transition owns.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/clock"
	"attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/session/repository"
	tokendomain "attendance-control-plane/internal/token/domain"
)

// Sentinel errors for the session service; the HTTP layer maps them to status codes.
var (
	ErrNotFound = errors.New("session not found")
	ErrTerminal = errors.New("session already terminated")
)

// TokenIssuer is the minimal token manager surface needed by the lifecycle.
type TokenIssuer interface {
	Issue(ctx context.Context, sessionID string) (*tokendomain.Token, error)
	Current(ctx context.Context, sessionID string) (*tokendomain.Token, error)
}

// RosterLookup is the roster collaborator surface used during absence marking.
type RosterLookup interface {
	AllIdentities(ctx context.Context, sessionID string) ([]string, error)
}

// AttendanceStore is the attendance surface needed by the lifecycle: which
// identities already have a record, bulk absent marking, and counts.
type AttendanceStore interface {
	ListIdentities(ctx context.Context, sessionID string) ([]string, error)
	MarkAbsent(ctx context.Context, sessionID, identity string, at time.Time) error
	CountBySession(ctx context.Context, sessionID string) (present, late, absent int, err error)
}

// Snapshot is the read-only session state surfaced to dashboards and the
// token renderer. The core never formats it for display.
type Snapshot struct {
	ID            string
	Name          string
	Status        domain.Status
	Phase         domain.Phase
	StartTime     time.Time
	EndTime       time.Time
	LateThreshold time.Duration
	TokenValue    string // current active token; empty once terminal
	Present       int
	Late          int
	Absent        int
}

// Service owns session lifecycle transitions.
type Service struct {
	repo       repository.Repository
	tokens     TokenIssuer
	roster     RosterLookup
	attendance AttendanceStore
	clock      clock.Clock
}

// NewService returns a Service with the given dependencies.
func NewService(repo repository.Repository, tokens TokenIssuer, roster RosterLookup, attendance AttendanceStore, clk clock.Clock) *Service {
	return &Service{repo: repo, tokens: tokens, roster: roster, attendance: attendance, clock: clk}
}

// Create validates and persists a new session and issues its first token.
func (s *Service) Create(ctx context.Context, name, organizerID string, start, end time.Time, lateThreshold time.Duration, rosterRef string) (*domain.Session, error) {
	sess := &domain.Session{
		ID:            uuid.New().String(),
		Name:          name,
		OrganizerID:   organizerID,
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		LateThreshold: lateThreshold,
		Status:        domain.StatusScheduled,
		RosterRef:     rosterRef,
		CreatedAt:     s.clock.Now(),
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	if _, err := s.tokens.Issue(ctx, sess.ID); err != nil {
		return nil, fmt.Errorf("issue initial token: %w", err)
	}
	return sess, nil
}

// Get returns the session, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// ListByOrganizer returns the organizer's sessions, newest first.
func (s *Service) ListByOrganizer(ctx context.Context, organizerID string) ([]*domain.Session, error) {
	return s.repo.ListByOrganizer(ctx, organizerID)
}

// Rotate issues a fresh token for a non-terminal session so the prior one
// fails validation with superseded.
func (s *Service) Rotate(ctx context.Context, id string) (*tokendomain.Token, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() || sess.PhaseAt(s.clock.Now()) == domain.PhaseEnded {
		return nil, ErrTerminal
	}
	return s.tokens.Issue(ctx, id)
}

// Stop terminates the session early. Semantically identical to expiry for
// absence marking; only the stored status differs.
func (s *Service) Stop(ctx context.Context, id string) error {
	return s.terminate(ctx, id, domain.StatusStopped)
}

// CheckExpiry transitions the session to expired when end_time has passed.
// Safe to call redundantly: the terminal-state guard collapses concurrent
// triggers into one absence-marking pass.
func (s *Service) CheckExpiry(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return nil
	}
	if s.clock.Now().Before(sess.EndTime) {
		return nil
	}
	return s.terminate(ctx, id, domain.StatusExpired)
}

// ExpireDue expires every session past its end_time. Called by the server's
// background poller; errors on individual sessions are logged, not fatal.
func (s *Service) ExpireDue(ctx context.Context) error {
	due, err := s.repo.ListDue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	for _, sess := range due {
		if err := s.terminate(ctx, sess.ID, domain.StatusExpired); err != nil {
			log.Printf("session: expire %s: %v", sess.ID, err)
		}
	}
	return nil
}

// Snapshot returns the session state at now, including the current token and
// attendance counts.
func (s *Service) Snapshot(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	snap := &Snapshot{
		ID:            sess.ID,
		Name:          sess.Name,
		Status:        sess.EffectiveStatus(now),
		Phase:         sess.PhaseAt(now),
		StartTime:     sess.StartTime,
		EndTime:       sess.EndTime,
		LateThreshold: sess.LateThreshold,
	}
	if !sess.Status.Terminal() {
		if tok, err := s.tokens.Current(ctx, id); err == nil && tok != nil && !tok.Consumed {
			snap.TokenValue = tok.Value
		}
	}
	present, late, absent, err := s.attendance.CountBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.Present, snap.Late, snap.Absent = present, late, absent
	return snap, nil
}

// terminate performs the one-way transition and, for the single winner of the
// CAS, runs absence marking exactly once.
func (s *Service) terminate(ctx context.Context, id string, status domain.Status) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		if status == domain.StatusStopped {
			return ErrTerminal
		}
		return nil
	}
	won, err := s.repo.Terminate(ctx, id, status, s.clock.Now())
	if err != nil {
		return err
	}
	if !won {
		// Lost the race to a concurrent trigger; that caller marks absences.
		if status == domain.StatusStopped {
			return ErrTerminal
		}
		return nil
	}
	return s.markAbsences(ctx, id)
}

// markAbsences gives every roster identity without an attendance record an
// implicit absent record. Roster membership stays owned by the roster
// collaborator; the core only reads it here.
func (s *Service) markAbsences(ctx context.Context, sessionID string) error {
	identities, err := s.roster.AllIdentities(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("roster lookup for absence marking: %w", err)
	}
	recorded, err := s.attendance.ListIdentities(ctx, sessionID)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(recorded))
	for _, id := range recorded {
		seen[id] = struct{}{}
	}
	now := s.clock.Now()
	for _, identity := range identities {
		if _, ok := seen[identity]; ok {
			continue
		}
		if err := s.attendance.MarkAbsent(ctx, sessionID, identity, now); err != nil {
			log.Printf("session: mark absent %s/%s: %v", sessionID, identity, err)
		}
	}
	return nil
}
