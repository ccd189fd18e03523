// Package checkin arbitrates check-in requests: one entry point that
// evaluates a request against token, session, roster, and device state and
// returns an accept/deny verdict with a stable reason code.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	attendancedomain "attendance-control-plane/internal/attendance/domain"
	attendancerepo "attendance-control-plane/internal/attendance/repository"
	"attendance-control-plane/internal/audit"
	"attendance-control-plane/internal/clock"
	devicedomain "attendance-control-plane/internal/device/domain"
	"attendance-control-plane/internal/fingerprint"
	"attendance-control-plane/internal/policy/engine"
	rosterdomain "attendance-control-plane/internal/roster/domain"
	sessiondomain "attendance-control-plane/internal/session/domain"
	"attendance-control-plane/internal/token"
	tokendomain "attendance-control-plane/internal/token/domain"
)

// Denial reason codes. These are the stable contract with callers; the UI
// maps them to human messages.
const (
	ReasonInvalidToken        = "invalid_token"
	ReasonTokenUsed           = "token_used"
	ReasonSuperseded          = "superseded"
	ReasonNoActiveSession     = "no_active_session"
	ReasonSessionExpired      = "session_expired"
	ReasonStudentNotFound     = "student_not_found"
	ReasonNotEnrolledClass    = "not_enrolled_class"
	ReasonNotEnrolledSession  = "not_enrolled_session"
	ReasonAlreadyCheckedIn    = "already_checked_in"
	ReasonDeviceAlreadyUsed   = "device_already_used"
	ReasonDeviceBlocked       = "device_blocked"
	ReasonMissingToken        = "missing_token"
	ReasonMissingIdentity     = "missing_identity"
	ReasonInfrastructureError = "infrastructure_error"
)

// Request is one check-in attempt as submitted by a scanning client.
type Request struct {
	TokenValue string
	Identity   string
	Signals    fingerprint.Signals
}

// Result is the arbiter's verdict. Reason is set only on denial; Outcome and
// DisplayName only on acceptance.
type Result struct {
	Accepted    bool
	Outcome     attendancedomain.Outcome
	Reason      string
	SessionID   string
	DeviceKey   string
	DisplayName string
	Consistency float64
}

// TokenManager is the token surface the arbiter needs.
type TokenManager interface {
	Resolve(ctx context.Context, value string) (*tokendomain.Token, error)
	Validate(ctx context.Context, sessionID, value string) error
	Consume(ctx context.Context, value, deviceKey string) (bool, error)
	Issue(ctx context.Context, sessionID string) (*tokendomain.Token, error)
}

// SessionStore resolves sessions by ID. Returns (nil, nil) when unknown.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// RosterLookup answers enrollment questions for a claimed identity.
type RosterLookup interface {
	IsEnrolled(ctx context.Context, sessionID, identity string) (rosterdomain.Membership, error)
}

// AttendanceStore is the attendance surface the arbiter needs.
type AttendanceStore interface {
	GetBySessionAndIdentity(ctx context.Context, sessionID, identity string) (*attendancedomain.Record, error)
	GetBySessionAndDevice(ctx context.Context, sessionID, deviceKey string) (*attendancedomain.Record, error)
	Create(ctx context.Context, r *attendancedomain.Record) error
}

// DeviceStore enforces the windowed device quota.
type DeviceStore interface {
	CheckAndRecord(ctx context.Context, deviceKey, scope string, maxUses int, window time.Duration, now time.Time) (devicedomain.Decision, error)
}

// Arbiter evaluates check-in requests end-to-end. All checks before the
// token consume are reads, so a denied request never burns the token and is
// safe to retry.
type Arbiter struct {
	tokens     TokenManager
	sessions   SessionStore
	roster     RosterLookup
	attendance AttendanceStore
	devices    DeviceStore
	policies   engine.Evaluator
	denials    audit.DenialLogger
	clock      clock.Clock

	defaults   engine.Defaults
	autoRotate bool
}

// NewArbiter returns an Arbiter with the given collaborators. defaults are
// the server-level enforcement settings; organizer policies can override
// them per attempt. When autoRotate is set, a successful consume immediately
// issues a fresh token so each scan is single-use while the session stays
// open.
func NewArbiter(
	tokens TokenManager,
	sessions SessionStore,
	roster RosterLookup,
	attendance AttendanceStore,
	devices DeviceStore,
	policies engine.Evaluator,
	denials audit.DenialLogger,
	clk clock.Clock,
	defaults engine.Defaults,
	autoRotate bool,
) *Arbiter {
	return &Arbiter{
		tokens:     tokens,
		sessions:   sessions,
		roster:     roster,
		attendance: attendance,
		devices:    devices,
		policies:   policies,
		denials:    denials,
		clock:      clk,
		defaults:   defaults,
		autoRotate: autoRotate,
	}
}

// Submit evaluates one check-in request. Denials are expected outcomes
// carried in Result.Reason; the error return is reserved for infrastructure
// failure, in which case Result.Reason is infrastructure_error and the token
// was not consumed.
func (a *Arbiter) Submit(ctx context.Context, req Request) (Result, error) {
	now := a.clock.Now()

	// Input validation fails fast before touching token or device state.
	req.TokenValue = strings.TrimSpace(req.TokenValue)
	req.Identity = strings.TrimSpace(req.Identity)
	if req.TokenValue == "" {
		a.denials.LogDenial(ctx, "", req.Identity, "", ReasonMissingToken)
		return Result{Reason: ReasonMissingToken}, nil
	}
	if req.Identity == "" {
		a.denials.LogDenial(ctx, "", "", "", ReasonMissingIdentity)
		return Result{Reason: ReasonMissingIdentity}, nil
	}

	// 1. Resolve the owning session from the token value.
	tok, err := a.tokens.Resolve(ctx, req.TokenValue)
	if err != nil {
		return a.infraFailure(ctx, "", req, "", fmt.Errorf("resolve token: %w", err))
	}
	if tok == nil {
		a.denials.LogDenial(ctx, "", req.Identity, "", ReasonInvalidToken)
		return Result{Reason: ReasonInvalidToken}, nil
	}
	sess, err := a.sessions.GetByID(ctx, tok.SessionID)
	if err != nil {
		return a.infraFailure(ctx, "", req, "", fmt.Errorf("load session: %w", err))
	}
	if sess == nil {
		a.denials.LogDenial(ctx, "", req.Identity, "", ReasonInvalidToken)
		return Result{Reason: ReasonInvalidToken}, nil
	}

	// 2. The session must be inside its active window.
	if !sess.AcceptingAt(now) {
		reason := ReasonNoActiveSession
		if sess.Status.Terminal() || sess.PhaseAt(now) == sessiondomain.PhaseEnded {
			reason = ReasonSessionExpired
		}
		return a.deny(ctx, sess.ID, req.Identity, "", reason), nil
	}

	// 3. The token must be the session's current, unconsumed one.
	switch err := a.tokens.Validate(ctx, sess.ID, req.TokenValue); err {
	case nil:
	case token.ErrInvalid:
		return a.deny(ctx, sess.ID, req.Identity, "", ReasonInvalidToken), nil
	case token.ErrUsed:
		return a.deny(ctx, sess.ID, req.Identity, "", ReasonTokenUsed), nil
	case token.ErrSuperseded:
		return a.deny(ctx, sess.ID, req.Identity, "", ReasonSuperseded), nil
	default:
		return a.infraFailure(ctx, sess.ID, req, "", fmt.Errorf("validate token: %w", err))
	}

	// 4. Roster membership for the claimed identity.
	membership, err := a.roster.IsEnrolled(ctx, sess.ID, req.Identity)
	if err != nil {
		return a.infraFailure(ctx, sess.ID, req, "", fmt.Errorf("roster lookup: %w", err))
	}
	switch membership.Status {
	case rosterdomain.StatusEnrolled:
	case rosterdomain.StatusUnknownStudent:
		return a.deny(ctx, sess.ID, req.Identity, "", ReasonStudentNotFound), nil
	case rosterdomain.StatusNotInClass:
		return a.deny(ctx, sess.ID, req.Identity, "", ReasonNotEnrolledClass), nil
	default:
		return a.deny(ctx, sess.ID, req.Identity, "", ReasonNotEnrolledSession), nil
	}

	// 5. Derive the device key. Pure function; an empty signal bag still
	// yields a (low-entropy) key.
	deviceKey, consistency := fingerprint.Derive(req.Signals)

	// Resolve enforcement settings, applying any organizer policy overrides.
	settings, err := a.policies.EvaluateCheckin(ctx, a.defaults, engine.Input{
		SessionID:        sess.ID,
		OrganizerID:      sess.OrganizerID,
		Identity:         req.Identity,
		DeviceKey:        deviceKey,
		ConsistencyScore: consistency,
		Phase:            string(sess.PhaseAt(now)),
	})
	if err != nil {
		return a.infraFailure(ctx, sess.ID, req, deviceKey, fmt.Errorf("evaluate policy: %w", err))
	}
	if settings.ConsistencyMin > 0 && consistency < settings.ConsistencyMin {
		return a.deny(ctx, sess.ID, req.Identity, deviceKey, ReasonDeviceBlocked), nil
	}

	// 6. One attendance record per identity per session.
	existing, err := a.attendance.GetBySessionAndIdentity(ctx, sess.ID, req.Identity)
	if err != nil {
		return a.infraFailure(ctx, sess.ID, req, deviceKey, fmt.Errorf("attendance lookup: %w", err))
	}
	if existing != nil {
		return a.deny(ctx, sess.ID, req.Identity, deviceKey, ReasonAlreadyCheckedIn), nil
	}

	// 7. Per-session device blocking: one device, one check-in.
	if settings.DeviceBlockingEnabled {
		byDevice, err := a.attendance.GetBySessionAndDevice(ctx, sess.ID, deviceKey)
		if err != nil {
			return a.infraFailure(ctx, sess.ID, req, deviceKey, fmt.Errorf("device attendance lookup: %w", err))
		}
		if byDevice != nil {
			return a.deny(ctx, sess.ID, req.Identity, deviceKey, ReasonDeviceAlreadyUsed), nil
		}
	}

	// 8. Windowed device quota. The scope is per-session or global per the
	// resolved settings; disabled blocking skips the quota entirely.
	if settings.DeviceBlockingEnabled {
		scope := devicedomain.SessionScope(sess.ID)
		if settings.Scope == devicedomain.GlobalScope {
			scope = devicedomain.GlobalScope
		}
		decision, err := a.devices.CheckAndRecord(ctx, deviceKey, scope, settings.MaxUses, time.Duration(settings.WindowSeconds)*time.Second, now)
		if err != nil {
			return a.infraFailure(ctx, sess.ID, req, deviceKey, fmt.Errorf("device quota: %w", err))
		}
		if !decision.Allowed {
			return a.deny(ctx, sess.ID, req.Identity, deviceKey, ReasonDeviceBlocked), nil
		}
	}

	// 9. Consume the token. Atomic; exactly one racer wins.
	won, err := a.tokens.Consume(ctx, req.TokenValue, deviceKey)
	if err != nil {
		return a.infraFailure(ctx, sess.ID, req, deviceKey, fmt.Errorf("consume token: %w", err))
	}
	if !won {
		return a.deny(ctx, sess.ID, req.Identity, deviceKey, ReasonTokenUsed), nil
	}

	// 10. Outcome from the timeline position.
	outcome := attendancedomain.OutcomePresent
	if sess.PhaseAt(now) == sessiondomain.PhaseLate {
		outcome = attendancedomain.OutcomeLate
	}

	// 11. Persist the attendance record.
	record := &attendancedomain.Record{
		ID:         uuid.New().String(),
		SessionID:  sess.ID,
		Identity:   req.Identity,
		DeviceKey:  deviceKey,
		TokenValue: req.TokenValue,
		Outcome:    outcome,
		Timestamp:  now,
	}
	if err := a.attendance.Create(ctx, record); err != nil {
		// A duplicate here means a racer recorded the identity between the
		// read check and this insert; the store's constraint is the backstop.
		if errors.Is(err, attendancerepo.ErrDuplicate) {
			return a.deny(ctx, sess.ID, req.Identity, deviceKey, ReasonAlreadyCheckedIn), nil
		}
		return a.infraFailure(ctx, sess.ID, req, deviceKey, fmt.Errorf("persist attendance: %w", err))
	}

	if a.autoRotate {
		if _, err := a.tokens.Issue(ctx, sess.ID); err != nil {
			log.Printf("checkin: auto-rotate for session %s failed: %v", sess.ID, err)
		}
	}

	return Result{
		Accepted:    true,
		Outcome:     outcome,
		SessionID:   sess.ID,
		DeviceKey:   deviceKey,
		DisplayName: membership.DisplayName,
		Consistency: consistency,
	}, nil
}

func (a *Arbiter) deny(ctx context.Context, sessionID, identity, deviceKey, reason string) Result {
	a.denials.LogDenial(ctx, sessionID, identity, deviceKey, reason)
	return Result{Reason: reason, SessionID: sessionID, DeviceKey: deviceKey}
}

func (a *Arbiter) infraFailure(ctx context.Context, sessionID string, req Request, deviceKey string, err error) (Result, error) {
	a.denials.LogDenial(ctx, sessionID, req.Identity, deviceKey, ReasonInfrastructureError)
	return Result{Reason: ReasonInfrastructureError, SessionID: sessionID}, err
}
