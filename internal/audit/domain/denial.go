package domain

import "time"

// DenialRecord is one rejected check-in attempt. The log is append-only;
// records are never mutated.
type DenialRecord struct {
	ID        string
	SessionID string // empty when the request resolved no session
	Identity  string // empty when the request carried no identity
	DeviceKey string // empty when denial happened before fingerprint derivation
	Reason    string // stable reason code, e.g. "token_used"
	CreatedAt time.Time
}
