package domain

import "time"

// Outcome classifies an attendance record. Absent records are written only by
// the session terminal transition's absence-marking pass, never by check-in.
type Outcome string

const (
	OutcomePresent Outcome = "present"
	OutcomeLate    Outcome = "late"
	OutcomeAbsent  Outcome = "absent"
)

// Record is one attendance event. At most one record exists per
// (session, identity), and per (session, device key) when device blocking is
// enabled.
type Record struct {
	ID         string
	SessionID  string
	Identity   string
	DeviceKey  string // empty for absent records
	TokenValue string // token consumed by this check-in; empty for absent records
	Outcome    Outcome
	Timestamp  time.Time
}
