package domain

import (
	"errors"
	"time"
)

// Policy is a stored Rego module that tunes check-in enforcement for one
// organizer. Disabled policies are kept but never evaluated.
type Policy struct {
	ID          string
	OrganizerID string
	Name        string
	Rules       string // Rego source
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the policy for persistence.
func (p *Policy) Validate() error {
	if p.OrganizerID == "" {
		return errors.New("organizer_id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Rules == "" {
		return errors.New("rules are required")
	}
	return nil
}
