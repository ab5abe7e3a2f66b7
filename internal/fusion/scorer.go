package fusion

import (
	"context"
	"log/slog"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/evidence"
)

// ActionRouter picks a recommended triage action for a scored report.
type ActionRouter interface {
	Route(ctx context.Context, r *domain.Report) (string, error)
}

// Scorer is the single authority for deriving risk fields on a report.
// The ingest worker, the review recompute path, and the preview
// endpoint all go through the same Score call so a report can never be
// scored two different ways.
type Scorer struct {
	gatherer *evidence.Gatherer
	router   ActionRouter
	cfg      domain.FusionConfig
	logger   *slog.Logger
}

// NewScorer creates a scorer over the given evidence gatherer. The
// router may be nil, in which case no triage action is recommended.
func NewScorer(gatherer *evidence.Gatherer, router ActionRouter, cfg domain.FusionConfig, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{gatherer: gatherer, router: router, cfg: cfg, logger: logger}
}

// Score gathers evidence for the report, fuses it, and writes the
// derived fields in place. Submitted fields are never touched. Failed
// evidence channels resolve as absent; when no channel resolves at all
// the report is left unscored and domain.ErrInsufficientEvidence is
// returned for the caller to retry or park.
func (s *Scorer) Score(ctx context.Context, r *domain.Report) error {
	bundle, err := s.gatherer.Gather(ctx, r)
	if err != nil {
		return err
	}

	result, err := Fuse(bundle, s.cfg)
	if err != nil {
		return err
	}

	s.apply(r, bundle, result)

	if s.router != nil {
		action, err := s.router.Route(ctx, r)
		if err != nil {
			s.logger.Warn("triage routing failed", "report_id", r.ID, "error", err)
		} else {
			r.TriageAction = action
		}
	}

	return nil
}

// apply copies the bundle and fusion result onto the report's derived fields.
func (s *Scorer) apply(r *domain.Report, bundle *domain.EvidenceBundle, result *Result) {
	if bundle.ML != nil {
		v := bundle.ML.Score
		r.MLScore = &v
	}
	if bundle.Density != nil {
		score := bundle.Density.Score
		count := bundle.Density.Count
		r.DensityScore = &score
		r.DensityCount = &count
	}
	if sat := bundle.Satellite; sat != nil {
		r.NDVIRecent = sat.RecentValue
		r.NDVIBaseline = sat.BaselineValue
		r.NDVIChange = sat.Change
		r.NDVIAnomaly = sat.Anomaly
		r.LandcoverShift = sat.LandcoverShift
		r.SatelliteScore = sat.Score
	}

	risk := result.Risk
	r.FusedRisk = &risk
	r.Reasons = result.Reasons
	r.Status = domain.StatusPendingReview

	now := time.Now().UTC()
	r.ScoredAt = &now
}
