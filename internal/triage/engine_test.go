package triage

import (
	"context"
	"testing"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func b(v bool) *bool         { return &v }

func loadedEngine(t *testing.T, rules []*domain.TriageRule) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Load(rules); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestRouteDefaultRules(t *testing.T) {
	e := loadedEngine(t, DefaultRules())

	tests := []struct {
		name   string
		report *domain.Report
		want   string
	}{
		{
			"hot cluster",
			&domain.Report{FusedRisk: f64(0.9), DensityCount: i(5)},
			ActionRapidResponse,
		},
		{
			"satellite anomaly at medium risk",
			&domain.Report{FusedRisk: f64(0.7), NDVIAnomaly: b(true)},
			ActionFieldSurvey,
		},
		{
			"high risk without corroboration",
			&domain.Report{FusedRisk: f64(0.8), DensityCount: i(0)},
			ActionFieldSurvey,
		},
		{
			"low risk isolated",
			&domain.Report{FusedRisk: f64(0.2), DensityCount: i(0)},
			ActionMonitorOnly,
		},
		{
			"nothing matches falls back to desk review",
			&domain.Report{FusedRisk: f64(0.5), DensityCount: i(1)},
			ActionDeskReview,
		},
		{
			"unscored report",
			&domain.Report{},
			ActionMonitorOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Route(context.Background(), tt.report)
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if got != tt.want {
				t.Errorf("Route = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoutePriorityOrder(t *testing.T) {
	rules := []*domain.TriageRule{
		{ID: "b", Expression: `fused_risk >= 0.5`, Action: "second", Priority: 20, Enabled: true},
		{ID: "a", Expression: `fused_risk >= 0.5`, Action: "first", Priority: 10, Enabled: true},
	}
	e := loadedEngine(t, rules)

	got, err := e.Route(context.Background(), &domain.Report{FusedRisk: f64(0.9)})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got != "first" {
		t.Errorf("Route = %q, want the lowest-priority-number rule to win", got)
	}
}

func TestLoadSkipsDisabledRules(t *testing.T) {
	rules := []*domain.TriageRule{
		{ID: "a", Expression: `true`, Action: "always", Priority: 10, Enabled: false},
	}
	e := loadedEngine(t, rules)
	if e.RulesCount() != 0 {
		t.Errorf("RulesCount = %d, want 0", e.RulesCount())
	}

	got, err := e.Route(context.Background(), &domain.Report{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got != ActionDeskReview {
		t.Errorf("Route = %q, want fallback", got)
	}
}

func TestValidate(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	ok := &domain.TriageRule{ID: "ok", Expression: `species == "pueraria" && fused_risk > 0.5`}
	if err := e.Validate(ok); err != nil {
		t.Errorf("Validate(ok) = %v", err)
	}

	bad := &domain.TriageRule{ID: "bad", Expression: `fused_risk >`}
	if err := e.Validate(bad); err == nil {
		t.Error("expected compile error for malformed expression")
	}

	nonBool := &domain.TriageRule{ID: "nonbool", Expression: `fused_risk + 1.0`}
	if err := e.Validate(nonBool); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}

func TestLoadReplacesRuleSet(t *testing.T) {
	e := loadedEngine(t, DefaultRules())
	before := e.RulesCount()
	if before == 0 {
		t.Fatal("default rules did not load")
	}

	if err := e.Load([]*domain.TriageRule{
		{ID: "only", Expression: `true`, Action: "always", Priority: 1, Enabled: true},
	}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.RulesCount() != 1 {
		t.Errorf("RulesCount = %d after reload, want 1", e.RulesCount())
	}
}
