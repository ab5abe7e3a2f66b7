// Package review implements the human review workflow: an append-only
// decision log over reports and outbreaks, with report status derived
// from the latest decision.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// Recomputer triggers an outbreak clustering pass.
type Recomputer interface {
	RunPass(ctx context.Context) error
}

// Service applies review decisions. Decisions are audit events; they
// are appended and never rewritten, and the report's status field is
// only ever a projection of the newest decision.
type Service struct {
	repo      domain.Repository
	bus       domain.EventBus
	recompute Recomputer
	logger    *slog.Logger
}

// NewService creates a review service. The recomputer may be nil, in
// which case verified decisions do not trigger reclustering.
func NewService(repo domain.Repository, bus domain.EventBus, recompute Recomputer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, bus: bus, recompute: recompute, logger: logger}
}

// Apply records a decision on a report and projects the new status.
// Returns domain.ErrNotFound when the report does not exist. Concurrent
// decisions serialize through the store; every decision stays in the
// log even when a later one supersedes its status.
func (s *Service) Apply(ctx context.Context, reportID, decision, reviewer, notes string) (*domain.ReviewDecision, error) {
	if !domain.ValidReportDecision(decision) {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}
	if reviewer == "" {
		return nil, fmt.Errorf("reviewer identity is required")
	}

	report, err := s.repo.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	rec := &domain.ReviewDecision{
		ID:        uuid.New().String(),
		ReportID:  reportID,
		Decision:  decision,
		Reviewer:  reviewer,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.SaveDecision(ctx, rec); err != nil {
		return nil, fmt.Errorf("save decision: %w", err)
	}

	status := statusFor(decision)
	if err := s.repo.UpdateReportStatus(ctx, reportID, status); err != nil {
		return nil, fmt.Errorf("project report status: %w", err)
	}

	s.logger.Info("review decision applied",
		"report_id", reportID,
		"decision", decision,
		"reviewer", reviewer)

	if decision == domain.DecisionVerified {
		s.afterVerified(ctx, report)
	}

	return rec, nil
}

// afterVerified triggers reclustering when the verified report belongs
// to an active outbreak.
func (s *Service) afterVerified(ctx context.Context, report *domain.Report) {
	if s.recompute == nil {
		return
	}
	ob, err := s.repo.OutbreakForReport(ctx, report.ID)
	if err != nil || ob == nil {
		return
	}
	if ob.Status != domain.OutbreakActive {
		return
	}
	if err := s.recompute.RunPass(ctx); err != nil {
		s.logger.Warn("post-verification reclustering failed", "report_id", report.ID, "error", err)
	}
}

// ResolveOutbreak marks an outbreak resolved. Resolution only ever
// happens here, on an explicit human decision; the clustering engine
// has no path to this state.
func (s *Service) ResolveOutbreak(ctx context.Context, outbreakID, reviewer, notes string) (*domain.ReviewDecision, error) {
	if reviewer == "" {
		return nil, fmt.Errorf("reviewer identity is required")
	}

	ob, err := s.repo.GetOutbreak(ctx, outbreakID)
	if err != nil {
		return nil, err
	}

	rec := &domain.ReviewDecision{
		ID:         uuid.New().String(),
		OutbreakID: outbreakID,
		Decision:   domain.DecisionResolved,
		Reviewer:   reviewer,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveDecision(ctx, rec); err != nil {
		return nil, fmt.Errorf("save decision: %w", err)
	}
	if err := s.repo.UpdateOutbreakStatus(ctx, outbreakID, domain.OutbreakResolved); err != nil {
		return nil, fmt.Errorf("resolve outbreak: %w", err)
	}

	s.logger.Info("outbreak resolved", "outbreak_id", outbreakID, "reviewer", reviewer)

	if s.bus != nil {
		resolved := *ob
		resolved.Status = domain.OutbreakResolved
		if payload, err := json.Marshal(&resolved); err == nil {
			if err := s.bus.Publish(ctx, domain.TopicOutbreakUpdated, payload); err != nil {
				s.logger.Warn("publish resolution failed", "outbreak_id", outbreakID, "error", err)
			}
		}
	}

	return rec, nil
}

// Queue returns reports awaiting review: scored reports highest fused
// risk first, then reports still awaiting analysis. minRisk filters out
// scored reports below the given fused risk; zero returns the whole
// queue.
func (s *Service) Queue(ctx context.Context, minRisk float64, limit int) ([]*domain.Report, error) {
	return s.repo.ListReviewQueue(ctx, minRisk, limit)
}

// Decisions returns the full decision log for a report, oldest first.
func (s *Service) Decisions(ctx context.Context, reportID string) ([]*domain.ReviewDecision, error) {
	if _, err := s.repo.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.repo.ListDecisions(ctx, reportID)
}

// statusFor projects a decision onto the report status field.
func statusFor(decision string) string {
	switch decision {
	case domain.DecisionVerified:
		return domain.StatusVerified
	case domain.DecisionRejected:
		return domain.StatusRejected
	default:
		return domain.StatusNeedsMoreInfo
	}
}
