// Package evidence gathers the per-report evidence channels that feed
// risk fusion: ML classifier output, local report density, and
// satellite vegetation change.
package evidence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// NearbyCounter counts same-species reports within a radius of a point
// since a cutoff time, excluding the report being scored. This is the
// function signature the density estimator expects from the repository.
type NearbyCounter func(ctx context.Context, lat, lon, radiusKm float64, since time.Time, species, excludeID string) (int, error)

// DensityEstimator derives a density evidence channel from recent
// nearby reports of the same species.
type DensityEstimator struct {
	count NearbyCounter
	cfg   domain.DensityConfig
}

// NewDensityEstimator creates a density estimator backed by the given counter.
func NewDensityEstimator(count NearbyCounter, cfg domain.DensityConfig) *DensityEstimator {
	return &DensityEstimator{count: count, cfg: cfg}
}

// Estimate computes the density evidence for a report. A failing count
// query is a retryable data problem, never a zero-density observation,
// so errors surface as domain.ErrDataUnavailable.
func (e *DensityEstimator) Estimate(ctx context.Context, r *domain.Report) (*domain.DensityEvidence, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	since := time.Now().UTC().AddDate(0, 0, -e.cfg.WindowDays)
	n, err := e.count(ctx, r.Lat, r.Lon, e.cfg.RadiusKm, since, r.Species, r.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: density count for report %s: %v", domain.ErrDataUnavailable, r.ID, err)
	}

	return &domain.DensityEvidence{
		Score:      DensityScore(n),
		Count:      n,
		RadiusKm:   e.cfg.RadiusKm,
		WindowDays: e.cfg.WindowDays,
	}, nil
}

// DensityScore maps a nearby-report count to [0,1) with saturating
// growth. Zero reports is exactly zero.
func DensityScore(count int) float64 {
	if count <= 0 {
		return 0
	}
	return 1 - math.Exp(-float64(count)/3.0)
}
