package evidence

import (
	"context"
	"log/slog"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/geo"
)

// SatelliteEvaluator derives a vegetation-change evidence channel by
// comparing a recent NDVI window against the same window one year
// earlier.
type SatelliteEvaluator struct {
	provider domain.NDVIProvider
	cfg      domain.SatelliteConfig
	logger   *slog.Logger
}

// NewSatelliteEvaluator creates a satellite evaluator over the given provider.
func NewSatelliteEvaluator(provider domain.NDVIProvider, cfg domain.SatelliteConfig, logger *slog.Logger) *SatelliteEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SatelliteEvaluator{provider: provider, cfg: cfg, logger: logger}
}

// Evaluate computes satellite evidence for a report. The anomaly flag is
// tri-state: nil means the comparison could not be made (missing window
// or provider failure), which is distinct from a confident "no anomaly".
// The score is nil exactly when the anomaly is nil.
func (e *SatelliteEvaluator) Evaluate(ctx context.Context, r *domain.Report) *domain.SatelliteEvidence {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	now := time.Now().UTC()
	recent := domain.Window{Start: now.AddDate(0, 0, -e.cfg.WindowDays), End: now}
	baseline := domain.Window{
		Start: recent.Start.AddDate(0, 0, -e.cfg.BaselineOffsetDays),
		End:   recent.End.AddDate(0, 0, -e.cfg.BaselineOffsetDays),
	}

	ev := &domain.SatelliteEvidence{}

	recentNDVI, err := e.provider.GetNDVI(ctx, r.Lat, r.Lon, e.cfg.RadiusM, recent)
	if err != nil {
		e.logger.Warn("recent NDVI unavailable", "report_id", r.ID, "error", err)
	} else if recentNDVI != nil {
		v := recentNDVI.Mean
		ev.RecentValue = &v
	}

	baselineNDVI, err := e.provider.GetNDVI(ctx, r.Lat, r.Lon, e.cfg.RadiusM, baseline)
	if err != nil {
		e.logger.Warn("baseline NDVI unavailable", "report_id", r.ID, "error", err)
	} else if baselineNDVI != nil {
		v := baselineNDVI.Mean
		ev.BaselineValue = &v
	}

	if ev.RecentValue != nil && ev.BaselineValue != nil {
		change := *ev.RecentValue - *ev.BaselineValue
		ev.Change = &change
		anomaly := change < e.cfg.AnomalyThreshold
		ev.Anomaly = &anomaly
	}

	if shift, err := e.provider.LandcoverShift(ctx, r.Lat, r.Lon, e.cfg.RadiusM, recent, baseline); err != nil {
		e.logger.Warn("landcover shift unavailable", "report_id", r.ID, "error", err)
	} else {
		ev.LandcoverShift = shift
	}

	if ev.Anomaly != nil {
		base := e.cfg.QuietBase
		if *ev.Anomaly {
			base = e.cfg.AnomalyBase
		}
		score := base
		if ev.LandcoverShift != nil {
			score += e.cfg.LandcoverCoefficient * *ev.LandcoverShift
		}
		score = geo.Clamp01(score)
		ev.Score = &score
	}

	return ev
}
