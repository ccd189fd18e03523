package domain

import "time"

// Event types emitted by the check-in platform.
const (
	EventCheckinAccepted = "checkin_accepted"
	EventCheckinDenied   = "checkin_denied"
	EventSessionCreated  = "session_created"
	EventSessionStopped  = "session_stopped"
	EventSessionExpired  = "session_expired"
	EventTokenRotated    = "token_rotated"
)

// Event is one telemetry event (session-scoped, optional identity/device).
type Event struct {
	SessionID   string            `json:"session_id,omitempty"`
	OrganizerID string            `json:"organizer_id,omitempty"`
	Identity    string            `json:"identity,omitempty"`
	DeviceKey   string            `json:"device_key,omitempty"`
	EventType   string            `json:"event_type"`
	Source      string            `json:"source,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
