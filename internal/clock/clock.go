// Package clock provides an injectable time source so lifecycle and policy
// decisions are testable against a fixed now.
package clock

import "time"

// Clock returns the current time. Implementations must be safe for concurrent use.
type Clock interface {
	Now() time.Time
}

// System is the wall clock. Times are returned in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }
