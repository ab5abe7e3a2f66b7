// Package domain defines the core interfaces and types for the risk
// fusion and outbreak detection engine.
package domain

import (
	"context"
	"time"
)

// BBox is a geographic bounding box filter (min/max in decimal degrees).
type BBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// TriageRule is a persisted CEL routing rule evaluated over a scored
// report to pick a recommended action. Rules are evaluated in ascending
// priority order (ties broken by ID) and the first match wins.
type TriageRule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Action     string `json:"action"`
	Priority   int    `json:"priority"`
	Enabled    bool   `json:"enabled"`
}

// Repository defines the persistence contract for reports, outbreaks,
// review decisions and triage rules.
type Repository interface {
	// Report operations
	SaveReport(ctx context.Context, r *Report) error
	UpdateReportScores(ctx context.Context, r *Report) error
	UpdateReportStatus(ctx context.Context, reportID, status string) error
	GetReport(ctx context.Context, reportID string) (*Report, error)
	ListNearbyReports(ctx context.Context, lat, lon, radiusKm float64, since time.Time, limit int) ([]*Report, error)
	ListReportsBBox(ctx context.Context, bbox *BBox, limit int) ([]*Report, error)
	ListReviewQueue(ctx context.Context, highRisk float64, limit int) ([]*Report, error)

	// ListUnscoredReports returns reports still awaiting analysis,
	// oldest first. The rescore sweep drains this backlog.
	ListUnscoredReports(ctx context.Context, limit int) ([]*Report, error)

	// NearbyCount returns the number of other reports sharing the same
	// species hypothesis within radiusKm of (lat, lon) created at or
	// after since, excluding excludeID. It backs the density estimator.
	NearbyCount(ctx context.Context, lat, lon, radiusKm float64, since time.Time, species, excludeID string) (int, error)

	// HighRiskSnapshot returns a consistent snapshot of reports with
	// fused risk at or above minRisk created at or after since, sorted
	// by report ID for deterministic clustering.
	HighRiskSnapshot(ctx context.Context, minRisk float64, since time.Time) ([]*Report, error)

	// Outbreak operations
	GetOutbreak(ctx context.Context, outbreakID string) (*Outbreak, error)
	ListOutbreaks(ctx context.Context, statuses []string) ([]*Outbreak, error)
	OutbreakForReport(ctx context.Context, reportID string) (*Outbreak, error)

	// CommitOutbreaks applies a whole clustering pass as one atomic
	// batch. Upserts carrying an ExpectedUpdatedAt token fail the whole
	// batch with ErrConcurrentModification when the stored row moved on.
	CommitOutbreaks(ctx context.Context, upserts []OutbreakUpsert) error
	UpdateOutbreakStatus(ctx context.Context, outbreakID, status string) error

	// Review decisions (append-only)
	SaveDecision(ctx context.Context, d *ReviewDecision) error
	ListDecisions(ctx context.Context, reportID string) ([]*ReviewDecision, error)

	// Triage rules
	SaveTriageRule(ctx context.Context, rule *TriageRule) error
	ListTriageRules(ctx context.Context) ([]*TriageRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
