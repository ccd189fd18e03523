package domain

import "time"

// Student is a participant identity known to the roster. The check-in core
// only reads this data; roster CRUD belongs to an external surface.
type Student struct {
	ID          string
	Identity    string // the identity participants claim at check-in, e.g. a student number
	DisplayName string
	CreatedAt   time.Time
}

// MembershipStatus is the roster collaborator's answer for one identity and
// session.
type MembershipStatus string

const (
	// StatusEnrolled: identity is eligible for the session.
	StatusEnrolled MembershipStatus = "enrolled"
	// StatusUnknownStudent: identity is not a known student at all.
	StatusUnknownStudent MembershipStatus = "unknown_student"
	// StatusNotInClass: student exists but the session's class roster does
	// not include them (or the session has no roster configured).
	StatusNotInClass MembershipStatus = "not_in_class"
	// StatusNotInSession: student is in the class but excluded from this
	// session's own roster.
	StatusNotInSession MembershipStatus = "not_in_session"
)

// Membership is the result of an enrollment check.
type Membership struct {
	Status      MembershipStatus
	DisplayName string // set when the student exists
}
