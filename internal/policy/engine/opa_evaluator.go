package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"attendance-control-plane/internal/policy/repository"
)

const defaultPolicyPackage = "acp.checkin"

// Default Rego policy that passes the configured defaults through unchanged.
const defaultRegoPolicy = `package acp.checkin

default device_blocking_enabled = false
default max_uses = 1
default window_seconds = 0
default scope = "session"
default consistency_min = 0

device_blocking_enabled = input.config.device_blocking_enabled if {
	input.config.device_blocking_enabled != null
}

max_uses = input.config.max_uses if {
	input.config.max_uses > 0
}

window_seconds = input.config.window_seconds if {
	input.config.window_seconds >= 0
}

scope = input.config.scope if {
	input.config.scope != ""
}

consistency_min = input.config.consistency_min if {
	input.config.consistency_min >= 0
}
`

// OPAEvaluator evaluates check-in enforcement policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based policy evaluator.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	minimalInput := map[string]interface{}{
		"config": map[string]interface{}{
			"device_blocking_enabled": false,
			"max_uses":                1,
			"window_seconds":          0,
			"scope":                   "session",
			"consistency_min":         0.0,
		},
		"attempt": map[string]interface{}{
			"session_id":        "",
			"organizer_id":      "",
			"identity":          "",
			"device_key":        "",
			"consistency_score": 1.0,
			"phase":             "",
		},
	}
	q := rego.New(
		rego.Query("data."+defaultPolicyPackage+".device_blocking_enabled"),
		rego.Compiler(compiler),
		rego.Input(minimalInput),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateCheckin resolves enforcement settings for one check-in attempt.
// Evaluation failures never block the attempt; the configured defaults apply.
func (e *OPAEvaluator) EvaluateCheckin(ctx context.Context, defaults Defaults, in Input) (Result, error) {
	input := e.buildInput(defaults, in)

	// Load enabled policies for the session's organizer
	var policies []string
	if in.OrganizerID != "" {
		enabled, err := e.policyRepo.GetEnabledByOrganizer(ctx, in.OrganizerID)
		if err != nil {
			log.Printf("policy: failed to load policies for organizer %s: %v", in.OrganizerID, err)
		} else {
			for _, p := range enabled {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}

	// Use default policy if the organizer has none
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}

	result, err := e.evaluatePolicies(ctx, defaults, policies, input)
	if err != nil {
		log.Printf("policy: evaluation failed: %v, using defaults", err)
		return e.defaultResult(defaults), nil
	}

	return result, nil
}

func (e *OPAEvaluator) buildInput(defaults Defaults, in Input) map[string]interface{} {
	return map[string]interface{}{
		"config": map[string]interface{}{
			"device_blocking_enabled": defaults.DeviceBlockingEnabled,
			"max_uses":                defaults.MaxUses,
			"window_seconds":          defaults.WindowSeconds,
			"scope":                   defaults.Scope,
			"consistency_min":         defaults.ConsistencyMin,
		},
		"attempt": map[string]interface{}{
			"session_id":        in.SessionID,
			"organizer_id":      in.OrganizerID,
			"identity":          in.Identity,
			"device_key":        in.DeviceKey,
			"consistency_score": in.ConsistencyScore,
			"phase":             in.Phase,
		},
	}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, defaults Defaults, policies []string, input map[string]interface{}) (Result, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}

	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return Result{}, fmt.Errorf("compile policies: %w", err)
	}

	out := e.defaultResult(defaults)

	// Query device_blocking_enabled
	blockingQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".device_blocking_enabled"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	blockingRS, err := blockingQuery.Eval(ctx)
	if err == nil && len(blockingRS) > 0 && len(blockingRS[0].Expressions) > 0 {
		if v, ok := blockingRS[0].Expressions[0].Value.(bool); ok {
			out.DeviceBlockingEnabled = v
		}
	}

	// Query max_uses
	usesQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".max_uses"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	usesRS, err := usesQuery.Eval(ctx)
	if err == nil && len(usesRS) > 0 && len(usesRS[0].Expressions) > 0 {
		if n, ok := asInt(usesRS[0].Expressions[0].Value); ok && n > 0 {
			out.MaxUses = n
		}
	}

	// Query window_seconds
	windowQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".window_seconds"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	windowRS, err := windowQuery.Eval(ctx)
	if err == nil && len(windowRS) > 0 && len(windowRS[0].Expressions) > 0 {
		if n, ok := asInt(windowRS[0].Expressions[0].Value); ok && n >= 0 {
			out.WindowSeconds = n
		}
	}

	// Query scope
	scopeQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".scope"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	scopeRS, err := scopeQuery.Eval(ctx)
	if err == nil && len(scopeRS) > 0 && len(scopeRS[0].Expressions) > 0 {
		if v, ok := scopeRS[0].Expressions[0].Value.(string); ok && (v == "session" || v == "global") {
			out.Scope = v
		}
	}

	// Query consistency_min
	minQuery := rego.New(
		rego.Query("data."+defaultPolicyPackage+".consistency_min"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	minRS, err := minQuery.Eval(ctx)
	if err == nil && len(minRS) > 0 && len(minRS[0].Expressions) > 0 {
		if f, ok := asFloat(minRS[0].Expressions[0].Value); ok && f >= 0 && f <= 1 {
			out.ConsistencyMin = f
		}
	}

	return out, nil
}

func (e *OPAEvaluator) defaultResult(defaults Defaults) Result {
	r := Result{
		DeviceBlockingEnabled: defaults.DeviceBlockingEnabled,
		MaxUses:               defaults.MaxUses,
		WindowSeconds:         defaults.WindowSeconds,
		Scope:                 defaults.Scope,
		ConsistencyMin:        defaults.ConsistencyMin,
	}
	if r.MaxUses < 1 {
		r.MaxUses = 1
	}
	if r.Scope == "" {
		r.Scope = "session"
	}
	return r
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	case float64:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
