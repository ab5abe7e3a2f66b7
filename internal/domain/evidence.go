package domain

import (
	"context"
	"time"
)

// EvidenceBundle carries the per-report evidence gathered for one fusion
// run. It is transient: only the component scores on the Report persist.
// A nil component means the source was unavailable, which fusion treats
// as absent — distinct from a present component with a low score.
type EvidenceBundle struct {
	ML        *MLEvidence        `json:"ml,omitempty"`
	Density   *DensityEvidence   `json:"density,omitempty"`
	Satellite *SatelliteEvidence `json:"satellite,omitempty"`
}

// MLEvidence is the normalized classifier signal.
type MLEvidence struct {
	Score float64 `json:"score"`
}

// DensityEvidence is the local corroboration signal. Count zero is a
// real observation (no corroboration), not missing data, so a present
// DensityEvidence with Score 0 still carries fusion weight.
type DensityEvidence struct {
	Score      float64 `json:"score"`
	Count      int     `json:"count"`
	RadiusKm   float64 `json:"radiusKm"`
	WindowDays int     `json:"windowDays"`
}

// SatelliteEvidence is the vegetation-change signal. Anomaly is
// tri-state: nil means one of the windows could not be observed (cloud
// cover, provider gap), which must stay distinguishable from a checked
// non-anomaly. Score is nil exactly when Anomaly is nil; fusion then
// drops the component instead of fabricating a mid-range value.
type SatelliteEvidence struct {
	RecentValue    *float64 `json:"recentValue,omitempty"`
	BaselineValue  *float64 `json:"baselineValue,omitempty"`
	Change         *float64 `json:"change,omitempty"`
	Anomaly        *bool    `json:"anomaly,omitempty"`
	LandcoverShift *float64 `json:"landcoverShift,omitempty"`
	Score          *float64 `json:"score,omitempty"`
}

// Window is a half-open observation interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NDVISummary is a pre-aggregated vegetation index mean over an area,
// as returned by the remote-sensing collaborator. The engine never
// touches raw imagery.
type NDVISummary struct {
	Mean   float64 `json:"mean"`
	Window Window  `json:"window"`
}

// NDVIProvider is the boundary contract with the external remote-sensing
// service. Implementations must return an error wrapping
// ErrDataUnavailable when the window cannot be observed, rather than a
// fabricated value.
type NDVIProvider interface {
	// GetNDVI returns the mean vegetation index over a circular area.
	GetNDVI(ctx context.Context, lat, lon, radiusM float64, window Window) (*NDVISummary, error)

	// LandcoverShift returns the optional land-cover class drift
	// magnitude in [0,1] between the two windows, or nil when the
	// secondary signal is not available.
	LandcoverShift(ctx context.Context, lat, lon, radiusM float64, recent, baseline Window) (*float64, error)
}
