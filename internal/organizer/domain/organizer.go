package domain

import (
	"errors"
	"time"
)

// Organizer is an instructor account that owns sessions and policies.
type Organizer struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the organizer for persistence. PasswordHash is checked
// separately since lookups may carry organizers without it.
func (o *Organizer) Validate() error {
	if o.ID == "" {
		return errors.New("id is required")
	}
	if o.Email == "" {
		return errors.New("email is required")
	}
	if o.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
