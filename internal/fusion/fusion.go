// Package fusion combines the per-report evidence channels into one
// fused risk score with a ranked explanation.
package fusion

import (
	"fmt"
	"sort"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// Result is the output of one fusion run.
type Result struct {
	Risk    float64
	Reasons []domain.Reason
}

// component is one present evidence channel entering the weighted sum.
type component struct {
	title  string
	detail string
	weight float64
	score  float64
}

// Fuse computes the weighted risk for an evidence bundle.
//
// Weights are renormalized to sum to 1 over the channels actually
// present, so an absent channel redistributes its weight instead of
// dragging the score toward zero. Reasons are sorted descending by
// actual contribution (effective weight times score). Fuse is a pure
// function of its inputs; the same bundle always yields an identical
// result.
//
// Returns domain.ErrInsufficientEvidence when no channel is present.
func Fuse(bundle *domain.EvidenceBundle, cfg domain.FusionConfig) (*Result, error) {
	var parts []component

	if bundle.ML != nil {
		parts = append(parts, component{
			title:  "ML classifier",
			detail: fmt.Sprintf("classifier confidence %.2f", bundle.ML.Score),
			weight: cfg.MLWeight,
			score:  bundle.ML.Score,
		})
	}
	if bundle.Density != nil {
		parts = append(parts, component{
			title:  fmt.Sprintf("Local density (%d)", bundle.Density.Count),
			detail: fmt.Sprintf("%d same-species reports within %.1f km over %d days", bundle.Density.Count, bundle.Density.RadiusKm, bundle.Density.WindowDays),
			weight: cfg.DensityWeight,
			score:  bundle.Density.Score,
		})
	}
	if bundle.Satellite != nil && bundle.Satellite.Score != nil {
		detail := "vegetation stable"
		if bundle.Satellite.Anomaly != nil && *bundle.Satellite.Anomaly {
			detail = fmt.Sprintf("NDVI dropped %.2f against last year", -*bundle.Satellite.Change)
		}
		parts = append(parts, component{
			title:  "Satellite change",
			detail: detail,
			weight: cfg.SatelliteWeight,
			score:  *bundle.Satellite.Score,
		})
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no evidence channel present", domain.ErrInsufficientEvidence)
	}

	var totalWeight float64
	for _, p := range parts {
		totalWeight += p.weight
	}

	result := &Result{}
	for _, p := range parts {
		effective := p.weight / totalWeight
		contribution := effective * p.score
		result.Risk += contribution
		result.Reasons = append(result.Reasons, domain.Reason{
			Title:        p.title,
			Detail:       p.detail,
			Weight:       effective,
			Score:        p.score,
			Contribution: contribution,
		})
	}

	// Stable sort keeps channel declaration order for exact ties, so
	// re-running on the same bundle reproduces the same ordering.
	sort.SliceStable(result.Reasons, func(i, j int) bool {
		return result.Reasons[i].Contribution > result.Reasons[j].Contribution
	})

	return result, nil
}
