package domain

import "time"

// UsageRecord tracks check-in usage of one device key within a quota scope.
// Expired windows are lazily reset on the next check, never actively swept.
type UsageRecord struct {
	DeviceKey   string
	Scope       string
	WindowStart time.Time
	Count       int
	UpdatedAt   time.Time
}

// Decision is the outcome of a quota check. Remaining is the quota left in
// the current window after this check.
type Decision struct {
	Allowed   bool
	Remaining int
}

// GlobalScope is the scope for the cross-session time-window policy.
const GlobalScope = "global"

// SessionScope returns the per-session quota scope for a session.
func SessionScope(sessionID string) string { return "session:" + sessionID }
