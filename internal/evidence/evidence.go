package evidence

import (
	"context"
	"log/slog"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// Gatherer assembles the evidence bundle for a report from all three
// channels. Channels that are unavailable stay nil in the bundle; the
// fusion layer decides what to do with absences.
type Gatherer struct {
	density   *DensityEstimator
	satellite *SatelliteEvaluator
	logger    *slog.Logger
}

// NewGatherer creates an evidence gatherer. Either estimator may be nil,
// in which case its channel is always absent.
func NewGatherer(density *DensityEstimator, satellite *SatelliteEvaluator, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{density: density, satellite: satellite, logger: logger}
}

// Gather collects the evidence bundle for a report.
//
// The ML channel is a passthrough of the submitted classifier
// confidence. Density and satellite failures both degrade to an absent
// channel so fusion can still run on whatever evidence resolved; an
// absent channel carries no weight and is never a fabricated zero.
func (g *Gatherer) Gather(ctx context.Context, r *domain.Report) (*domain.EvidenceBundle, error) {
	bundle := &domain.EvidenceBundle{}

	if r.MLConfidence != nil {
		bundle.ML = &domain.MLEvidence{Score: *r.MLConfidence}
	}

	if g.density != nil {
		d, err := g.density.Estimate(ctx, r)
		if err != nil {
			g.logger.Warn("density channel unavailable, scoring without it",
				"report_id", r.ID, "error", err)
		} else {
			bundle.Density = d
		}
	}

	if g.satellite != nil {
		bundle.Satellite = g.satellite.Evaluate(ctx, r)
	}

	return bundle, nil
}
