package engine

import (
	"context"
)

// Defaults are the enforcement settings configured at the server level.
// Organizer policies may override any of them per check-in.
type Defaults struct {
	DeviceBlockingEnabled bool
	MaxUses               int
	WindowSeconds         int
	Scope                 string
	ConsistencyMin        float64
}

// Input describes one check-in attempt for policy evaluation.
type Input struct {
	SessionID        string
	OrganizerID      string
	Identity         string
	DeviceKey        string
	ConsistencyScore float64
	Phase            string
}

// Result holds the enforcement settings to apply to one check-in attempt.
type Result struct {
	DeviceBlockingEnabled bool
	MaxUses               int
	WindowSeconds         int
	Scope                 string
	ConsistencyMin        float64
}

// Evaluator evaluates check-in enforcement policies using OPA or other engines.
type Evaluator interface {
	// EvaluateCheckin resolves the enforcement settings for one check-in
	// attempt, starting from the configured defaults and applying any
	// enabled organizer policies on top.
	EvaluateCheckin(ctx context.Context, defaults Defaults, in Input) (Result, error)
}
