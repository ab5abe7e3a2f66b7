package domain

import (
	"time"
)

// Outbreak is a spatiotemporal cluster of high-risk same-species reports.
// It is owned by the clustering engine; members are weak references to
// report IDs, so deleting a report never cascades here — the next
// clustering pass recomputes membership instead.
type Outbreak struct {
	ID      string `json:"id"`
	Species string `json:"species"`

	CentroidLat float64 `json:"centroidLat"`
	CentroidLon float64 `json:"centroidLon"`

	// RadiusKm is the extent of the spread: the maximum distance from the
	// centroid to any member, not the clustering search radius.
	RadiusKm float64 `json:"radiusKm"`

	MemberIDs   []string `json:"memberIds,omitempty"`
	ReportCount int      `json:"reportCount"`
	MeanRisk    float64  `json:"meanRisk"`

	Status string `json:"status"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastMemberAt time.Time `json:"lastMemberAt"`
}

// Outbreak lifecycle statuses. An outbreak going quiet moves to
// monitoring after a cooldown; resolved requires an explicit human
// decision and is never set automatically.
const (
	OutbreakActive     = "active"
	OutbreakMonitoring = "monitoring"
	OutbreakResolved   = "resolved"
)

// HasMember reports whether the given report is a member of the outbreak.
func (o *Outbreak) HasMember(reportID string) bool {
	for _, id := range o.MemberIDs {
		if id == reportID {
			return true
		}
	}
	return false
}

// OutbreakUpsert is one outbreak write inside an atomic clustering commit.
// ExpectedUpdatedAt carries the optimistic concurrency token for merged
// outbreaks; nil means the outbreak is newly created.
type OutbreakUpsert struct {
	Outbreak          *Outbreak
	ExpectedUpdatedAt *time.Time
}
