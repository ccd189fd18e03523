package domain

import (
	"errors"
	"time"
)

// Status is the stored lifecycle state of a session. Terminal states
// (expired, stopped) are never left; re-opening attendance requires a new
// session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusStopped   Status = "stopped"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool { return s == StatusExpired || s == StatusStopped }

// Phase is the position of a moment within the session timeline. It is
// computed from timestamps, independent of the stored status, so every
// consumer shares one authoritative "is it late yet" answer.
type Phase string

const (
	// PhaseScheduled: before start_time; check-ins rejected.
	PhaseScheduled Phase = "scheduled"
	// PhasePresent: within [start, start+late_threshold); outcome present.
	PhasePresent Phase = "present-window"
	// PhaseLate: within [start+late_threshold, end); outcome late.
	PhaseLate Phase = "late-window"
	// PhaseEnded: at or past end_time; check-ins rejected.
	PhaseEnded Phase = "ended"
)

// Session is a time-boxed attendance window owned by an organizer.
type Session struct {
	ID            string
	Name          string
	OrganizerID   string
	StartTime     time.Time
	EndTime       time.Time
	LateThreshold time.Duration
	Status        Status
	RosterRef     string     // class roster this session draws from; empty if per-session roster only
	AbsentMarkedAt *time.Time // set once by the terminal transition's absence-marking pass
	CreatedAt     time.Time
}

// Validate validates the session for persistence. Returns an error describing
// the first validation failure.
func (s *Session) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !s.EndTime.After(s.StartTime) {
		return errors.New("end_time must be after start_time")
	}
	if s.LateThreshold < 0 {
		return errors.New("late_threshold must not be negative")
	}
	if s.LateThreshold > s.EndTime.Sub(s.StartTime) {
		return errors.New("late_threshold must not exceed the session duration")
	}
	if s.Status == "" {
		s.Status = StatusScheduled
	}
	return nil
}

// PhaseAt returns the timeline phase at the given moment.
func (s *Session) PhaseAt(now time.Time) Phase {
	if now.Before(s.StartTime) {
		return PhaseScheduled
	}
	if !now.Before(s.EndTime) {
		return PhaseEnded
	}
	if now.Before(s.StartTime.Add(s.LateThreshold)) {
		return PhasePresent
	}
	return PhaseLate
}

// AcceptingAt reports whether the session accepts check-ins at the given
// moment: not terminated by the organizer, and inside the active window. A
// session past end_time stops accepting even before the stored status has
// caught up.
func (s *Session) AcceptingAt(now time.Time) bool {
	if s.Status.Terminal() {
		return false
	}
	p := s.PhaseAt(now)
	return p == PhasePresent || p == PhaseLate
}

// EffectiveStatus resolves the stored status against the clock: a scheduled
// session inside its window reports active, one past end_time reports
// expired. Terminal stored statuses always win.
func (s *Session) EffectiveStatus(now time.Time) Status {
	if s.Status.Terminal() {
		return s.Status
	}
	switch s.PhaseAt(now) {
	case PhaseScheduled:
		return StatusScheduled
	case PhaseEnded:
		return StatusExpired
	default:
		return StatusActive
	}
}
