// Package triage provides the CEL-Go based routing engine that maps a
// scored report to a recommended field action.
package triage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// Known routing actions. Rules may emit other strings; these are the
// ones the default rule set uses.
const (
	ActionRapidResponse = "rapid_response"
	ActionFieldSurvey   = "field_survey"
	ActionDeskReview    = "desk_review"
	ActionMonitorOnly   = "monitor_only"
)

// Engine evaluates triage rules against a scored report. Rules are
// ordered by priority and the first rule whose expression evaluates
// true wins.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*CompiledRule
	fallback string
}

// CompiledRule pairs a rule with its pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.TriageRule
	Program cel.Program
}

// NewEngine creates a triage engine with an empty rule set.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("fused_risk", cel.DoubleType),
		cel.Variable("ml_confidence", cel.DoubleType),
		cel.Variable("density_count", cel.IntType),
		cel.Variable("density_score", cel.DoubleType),
		cel.Variable("satellite_anomaly", cel.BoolType),
		cel.Variable("satellite_score", cel.DoubleType),
		cel.Variable("species", cel.StringType),
		cel.Variable("is_invasive", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{env: env, fallback: ActionDeskReview}, nil
}

// Validate compiles a rule without loading it.
func (e *Engine) Validate(rule *domain.TriageRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, err := e.compile(rule)
	return err
}

// Load replaces the active rule set with the enabled subset of rules,
// sorted by ascending priority. Used both at startup and for hot
// reloads from the store.
func (e *Engine) Load(rules []*domain.TriageRule) error {
	var compiled []*CompiledRule
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		c, err := e.compile(r)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		compiled = append(compiled, c)
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Rule.Priority != compiled[j].Rule.Priority {
			return compiled[i].Rule.Priority < compiled[j].Rule.Priority
		}
		return compiled[i].Rule.ID < compiled[j].Rule.ID
	})

	e.mu.Lock()
	e.compiled = compiled
	e.mu.Unlock()
	return nil
}

func (e *Engine) compile(rule *domain.TriageRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program: %w", err)
	}
	return &CompiledRule{Rule: rule, Program: program}, nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Rules returns the loaded rules in evaluation order.
func (e *Engine) Rules() []*domain.TriageRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*domain.TriageRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		out = append(out, c.Rule)
	}
	return out
}

// Route picks the action for a scored report: first matching rule in
// priority order, or the desk review fallback when nothing matches.
// A rule that fails to evaluate is skipped rather than aborting the
// route; routing is advisory and must not block scoring.
func (e *Engine) Route(ctx context.Context, r *domain.Report) (string, error) {
	e.mu.RLock()
	rules := e.compiled
	e.mu.RUnlock()

	activation := activationFor(r)
	for _, c := range rules {
		out, _, err := c.Program.ContextEval(ctx, activation)
		if err != nil {
			continue
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			return c.Rule.Action, nil
		}
	}
	return e.fallback, nil
}

// activationFor flattens a report's scores into CEL variables. Absent
// components activate as zero values so rules stay total functions.
func activationFor(r *domain.Report) map[string]any {
	a := map[string]any{
		"fused_risk":        0.0,
		"ml_confidence":     0.0,
		"density_count":     int64(0),
		"density_score":     0.0,
		"satellite_anomaly": false,
		"satellite_score":   0.0,
		"species":           r.Species,
		"is_invasive":       false,
	}
	if r.FusedRisk != nil {
		a["fused_risk"] = *r.FusedRisk
	}
	if r.MLConfidence != nil {
		a["ml_confidence"] = *r.MLConfidence
	}
	if r.DensityCount != nil {
		a["density_count"] = int64(*r.DensityCount)
	}
	if r.DensityScore != nil {
		a["density_score"] = *r.DensityScore
	}
	if r.NDVIAnomaly != nil {
		a["satellite_anomaly"] = *r.NDVIAnomaly
	}
	if r.SatelliteScore != nil {
		a["satellite_score"] = *r.SatelliteScore
	}
	if r.IsInvasive != nil {
		a["is_invasive"] = *r.IsInvasive
	}
	return a
}

// DefaultRules is the built-in rule set loaded when the store has none.
func DefaultRules() []*domain.TriageRule {
	return []*domain.TriageRule{
		{
			ID:         "rapid-response-hot-cluster",
			Name:       "Rapid response for hot clusters",
			Expression: `fused_risk >= 0.85 && density_count >= 3`,
			Action:     ActionRapidResponse,
			Priority:   10,
			Enabled:    true,
		},
		{
			ID:         "field-survey-satellite",
			Name:       "Field survey on satellite anomaly",
			Expression: `fused_risk >= 0.65 && satellite_anomaly`,
			Action:     ActionFieldSurvey,
			Priority:   20,
			Enabled:    true,
		},
		{
			ID:         "field-survey-high-risk",
			Name:       "Field survey for high fused risk",
			Expression: `fused_risk >= 0.75`,
			Action:     ActionFieldSurvey,
			Priority:   30,
			Enabled:    true,
		},
		{
			ID:         "monitor-low-risk",
			Name:       "Monitor low-risk isolated reports",
			Expression: `fused_risk < 0.35 && density_count == 0`,
			Action:     ActionMonitorOnly,
			Priority:   40,
			Enabled:    true,
		},
	}
}
