package domain

import "time"

// Token is a single-use opaque value gating one check-in attempt for a
// session. A session has exactly one active token; prior tokens are kept
// superseded for audit, never deleted.
type Token struct {
	Value        string
	SessionID    string
	IssuedAt     time.Time
	SupersededAt *time.Time // nil while this is the session's current token
	Consumed     bool
	ConsumedBy   string     // device key of the winning check-in; empty until consumed
	ConsumedAt   *time.Time // nil until consumed
}

// Active reports whether the token is the session's current, unconsumed token.
func (t *Token) Active() bool {
	return t != nil && t.SupersededAt == nil && !t.Consumed
}
