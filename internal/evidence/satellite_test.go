package evidence

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// fakeProvider returns canned NDVI values keyed off the window order:
// the first GetNDVI call is the recent window, the second the baseline.
type fakeProvider struct {
	recent      *float64
	baseline    *float64
	shift       *float64
	recentErr   error
	baselineErr error
	shiftErr    error

	calls int
}

func (p *fakeProvider) GetNDVI(ctx context.Context, lat, lon, radiusM float64, w domain.Window) (*domain.NDVISummary, error) {
	p.calls++
	if p.calls == 1 {
		if p.recentErr != nil {
			return nil, p.recentErr
		}
		if p.recent == nil {
			return nil, nil
		}
		return &domain.NDVISummary{Mean: *p.recent, Window: w}, nil
	}
	if p.baselineErr != nil {
		return nil, p.baselineErr
	}
	if p.baseline == nil {
		return nil, nil
	}
	return &domain.NDVISummary{Mean: *p.baseline, Window: w}, nil
}

func (p *fakeProvider) LandcoverShift(ctx context.Context, lat, lon, radiusM float64, recent, baseline domain.Window) (*float64, error) {
	if p.shiftErr != nil {
		return nil, p.shiftErr
	}
	return p.shift, nil
}

func f64(v float64) *float64 { return &v }

func TestSatelliteAnomaly(t *testing.T) {
	p := &fakeProvider{recent: f64(0.35), baseline: f64(0.60), shift: f64(0.3)}
	eval := NewSatelliteEvaluator(p, domain.DefaultConfig().Satellite, nil)

	ev := eval.Evaluate(context.Background(), &domain.Report{ID: "rpt-1", Lat: 10, Lon: 10})
	if ev.Anomaly == nil || !*ev.Anomaly {
		t.Fatalf("Anomaly = %v, want true", ev.Anomaly)
	}
	if ev.Change == nil || math.Abs(*ev.Change-(-0.25)) > 1e-9 {
		t.Errorf("Change = %v, want -0.25", ev.Change)
	}
	// 0.8 base + 0.6*0.3 landcover term.
	if ev.Score == nil || math.Abs(*ev.Score-0.98) > 1e-9 {
		t.Errorf("Score = %v, want 0.98", ev.Score)
	}
}

func TestSatelliteQuiet(t *testing.T) {
	p := &fakeProvider{recent: f64(0.55), baseline: f64(0.60)}
	eval := NewSatelliteEvaluator(p, domain.DefaultConfig().Satellite, nil)

	ev := eval.Evaluate(context.Background(), &domain.Report{ID: "rpt-1"})
	if ev.Anomaly == nil || *ev.Anomaly {
		t.Fatalf("Anomaly = %v, want false", ev.Anomaly)
	}
	if ev.Score == nil || math.Abs(*ev.Score-0.2) > 1e-9 {
		t.Errorf("Score = %v, want 0.2 quiet base", ev.Score)
	}
}

func TestSatelliteIncreaseIsNotAnomalous(t *testing.T) {
	// Vegetation gain beyond the threshold magnitude still scores quiet.
	p := &fakeProvider{recent: f64(0.80), baseline: f64(0.50)}
	eval := NewSatelliteEvaluator(p, domain.DefaultConfig().Satellite, nil)

	ev := eval.Evaluate(context.Background(), &domain.Report{ID: "rpt-1"})
	if ev.Anomaly == nil || *ev.Anomaly {
		t.Fatalf("Anomaly = %v, want false for NDVI increase", ev.Anomaly)
	}
}

func TestSatelliteMissingWindow(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProvider
	}{
		{"recent missing", &fakeProvider{baseline: f64(0.6)}},
		{"baseline error", &fakeProvider{recent: f64(0.4), baselineErr: errors.New("timeout")}},
		{"both missing", &fakeProvider{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := NewSatelliteEvaluator(tt.p, domain.DefaultConfig().Satellite, nil)
			ev := eval.Evaluate(context.Background(), &domain.Report{ID: "rpt-1"})
			if ev.Anomaly != nil {
				t.Errorf("Anomaly = %v, want nil when a window is missing", *ev.Anomaly)
			}
			if ev.Score != nil {
				t.Errorf("Score = %v, want nil when anomaly is indeterminate", *ev.Score)
			}
		})
	}
}

func TestSatelliteScoreClamped(t *testing.T) {
	p := &fakeProvider{recent: f64(0.20), baseline: f64(0.60), shift: f64(0.9)}
	eval := NewSatelliteEvaluator(p, domain.DefaultConfig().Satellite, nil)

	ev := eval.Evaluate(context.Background(), &domain.Report{ID: "rpt-1"})
	if ev.Score == nil || *ev.Score != 1.0 {
		t.Errorf("Score = %v, want clamped to 1.0", ev.Score)
	}
}

func TestGatherMLPassthrough(t *testing.T) {
	g := NewGatherer(nil, nil, nil)

	conf := 0.8
	bundle, err := g.Gather(context.Background(), &domain.Report{ID: "rpt-1", MLConfidence: &conf})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if bundle.ML == nil || bundle.ML.Score != 0.8 {
		t.Errorf("ML = %+v, want passthrough score 0.8", bundle.ML)
	}
	if bundle.Density != nil || bundle.Satellite != nil {
		t.Error("expected absent density and satellite channels")
	}
}

func TestGatherNoML(t *testing.T) {
	g := NewGatherer(nil, nil, nil)

	bundle, err := g.Gather(context.Background(), &domain.Report{ID: "rpt-1"})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if bundle.ML != nil {
		t.Errorf("ML = %+v, want nil when no confidence submitted", bundle.ML)
	}
}

func TestGatherDensityTimeoutDegradesToAbsent(t *testing.T) {
	counter := func(ctx context.Context, lat, lon, radiusKm float64, since time.Time, species, excludeID string) (int, error) {
		return 0, context.DeadlineExceeded
	}
	density := NewDensityEstimator(counter, domain.DefaultConfig().Density)
	g := NewGatherer(density, nil, nil)

	conf := 0.7
	bundle, err := g.Gather(context.Background(), &domain.Report{ID: "rpt-1", MLConfidence: &conf})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if bundle.Density != nil {
		t.Errorf("Density = %+v, want absent after a timed-out count", bundle.Density)
	}
	if bundle.ML == nil || bundle.ML.Score != 0.7 {
		t.Errorf("ML = %+v, want the surviving channel intact", bundle.ML)
	}
}
