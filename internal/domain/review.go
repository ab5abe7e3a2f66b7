package domain

import (
	"time"
)

// ReviewDecision records one human expert decision against a report or an
// outbreak. Decisions are append-only: a later correction is a new row,
// never a mutation, and the report status is a projection of the latest
// decision.
type ReviewDecision struct {
	ID         string    `json:"id"`
	ReportID   string    `json:"reportId,omitempty"`
	OutbreakID string    `json:"outbreakId,omitempty"`
	Decision   string    `json:"decision"`
	Reviewer   string    `json:"reviewer"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Review decision outcomes.
const (
	DecisionVerified      = "verified"
	DecisionRejected      = "rejected"
	DecisionNeedsMoreInfo = "needs_more_info"
	DecisionResolved      = "resolved"
)

// ValidReportDecision reports whether d is an allowed decision on a report.
func ValidReportDecision(d string) bool {
	switch d {
	case DecisionVerified, DecisionRejected, DecisionNeedsMoreInfo:
		return true
	}
	return false
}
