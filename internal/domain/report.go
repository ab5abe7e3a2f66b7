package domain

import (
	"time"
)

// Report is a single citizen-submitted sighting observation.
// The submitted fields (location, species hypothesis, classifier output)
// are never edited by the engine; scoring only appends derived fields.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Species hypothesis from the external classifier. Empty when the
	// classifier produced no label.
	Species      string   `json:"species,omitempty"`
	MLConfidence *float64 `json:"mlConfidence,omitempty"`
	IsInvasive   *bool    `json:"isInvasive,omitempty"`

	Notes    string `json:"notes,omitempty"`
	Reporter string `json:"reporter,omitempty"`

	Status string `json:"status"`

	// Derived fields, appended by the scoring pipeline.
	MLScore        *float64  `json:"mlScore,omitempty"`
	DensityScore   *float64  `json:"densityScore,omitempty"`
	DensityCount   *int      `json:"densityCount,omitempty"`
	SatelliteScore *float64  `json:"satelliteScore,omitempty"`
	NDVIRecent     *float64  `json:"ndviRecent,omitempty"`
	NDVIBaseline   *float64  `json:"ndviBaseline,omitempty"`
	NDVIChange     *float64  `json:"ndviChange,omitempty"`
	NDVIAnomaly    *bool     `json:"ndviAnomaly,omitempty"`
	LandcoverShift *float64  `json:"landcoverShift,omitempty"`
	FusedRisk      *float64  `json:"fusedRisk,omitempty"`
	Reasons        []Reason  `json:"reasons,omitempty"`
	TriageAction   string    `json:"triageAction,omitempty"`
	ScoredAt       *time.Time `json:"scoredAt,omitempty"`
}

// Reason is one entry of the ranked explanation attached to a scored
// report. Entries are ordered by Contribution descending.
type Reason struct {
	Title        string  `json:"title"`
	Detail       string  `json:"detail"`
	Weight       float64 `json:"weight"`
	Score        float64 `json:"score"`
	Contribution float64 `json:"contribution"`
}

// Report lifecycle statuses. A report the engine has not scored yet is
// pending_analysis; it must never be displayed with a fabricated risk.
const (
	StatusPendingAnalysis = "pending_analysis"
	StatusPendingReview   = "pending_review"
	StatusVerified        = "verified"
	StatusRejected        = "rejected"
	StatusNeedsMoreInfo   = "needs_more_info"
)

// ReportRequest is the API payload for report ingestion.
type ReportRequest struct {
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	Species      string   `json:"species,omitempty"`
	MLConfidence *float64 `json:"mlConfidence,omitempty"`
	IsInvasive   *bool    `json:"isInvasive,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Reporter     string   `json:"reporter,omitempty"`
}

// ToReport converts an ingestion request to a Report domain object.
func (r *ReportRequest) ToReport(id string) *Report {
	return &Report{
		ID:           id,
		CreatedAt:    time.Now().UTC(),
		Lat:          r.Lat,
		Lon:          r.Lon,
		Species:      r.Species,
		MLConfidence: r.MLConfidence,
		IsInvasive:   r.IsInvasive,
		Notes:        r.Notes,
		Reporter:     r.Reporter,
		Status:       StatusPendingAnalysis,
	}
}

// RiskBand classifies a fused risk value against configured thresholds.
// Bands are a display/filter concern only and are never persisted.
func RiskBand(risk float64, cfg FusionConfig) string {
	switch {
	case risk >= cfg.HighRisk:
		return "high"
	case risk >= cfg.MediumRisk:
		return "medium"
	default:
		return "low"
	}
}
