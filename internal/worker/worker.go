// Package worker provides async scoring and scheduled clustering.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/fusion"
)

// Recomputer triggers an outbreak clustering pass.
type Recomputer interface {
	RunPass(ctx context.Context) error
}

// Worker consumes ingested reports from the event bus, scores them, and
// schedules periodic clustering passes.
type Worker struct {
	bus       domain.EventBus
	repo      domain.Repository
	scorer    *fusion.Scorer
	recompute Recomputer
	cfg       domain.Config
	logger    *slog.Logger

	cron          *cron.Cron
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a worker over the scoring pipeline.
func NewWorker(bus domain.EventBus, repo domain.Repository, scorer *fusion.Scorer, recompute Recomputer, cfg domain.Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		repo:      repo,
		scorer:    scorer,
		recompute: recompute,
		cfg:       cfg,
		logger:    logger,
		cron:      cron.New(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the ingest topic and arms the clustering and
// rescore schedules.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicReportIngested, w.handleIngested)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	scheduled := false
	if w.recompute != nil && w.cfg.Cluster.Schedule != "" {
		if _, err := w.cron.AddFunc(w.cfg.Cluster.Schedule, w.scheduledPass); err != nil {
			return err
		}
		scheduled = true
	}
	if w.cfg.Worker.RescoreSchedule != "" {
		if _, err := w.cron.AddFunc(w.cfg.Worker.RescoreSchedule, w.rescoreSweep); err != nil {
			return err
		}
		scheduled = true
	}
	if scheduled {
		w.cron.Start()
	}

	w.logger.Info("worker started",
		"topic", domain.TopicReportIngested,
		"cluster_schedule", w.cfg.Cluster.Schedule,
		"rescore_schedule", w.cfg.Worker.RescoreSchedule,
	)
	return nil
}

// Stop cancels subscriptions and the clustering schedule.
func (w *Worker) Stop() {
	w.cancel()
	for _, sub := range w.subscriptions {
		_ = sub.Unsubscribe()
	}
	ctx := w.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		w.logger.Warn("clustering job still running at shutdown")
	}
}

// handleIngested scores one freshly ingested report.
func (w *Worker) handleIngested(ctx context.Context, msg *domain.Message) error {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil || envelope.ID == "" {
		w.logger.Error("malformed ingest message", "message_id", msg.ID, "error", err)
		return err
	}

	report, err := w.repo.GetReport(ctx, envelope.ID)
	if err != nil {
		w.logger.Error("report lookup failed", "report_id", envelope.ID, "error", err)
		return err
	}

	return w.ScoreAndPersist(ctx, report)
}

// ScoreAndPersist runs the scoring pipeline for a report and stores the
// outcome. A report whose evidence cannot be gathered stays in pending
// analysis rather than being given a fabricated score.
func (w *Worker) ScoreAndPersist(ctx context.Context, report *domain.Report) error {
	start := time.Now()

	if err := w.scorer.Score(ctx, report); err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientEvidence):
			w.logger.Warn("report has no usable evidence", "report_id", report.ID)
			return nil
		case errors.Is(err, domain.ErrDataUnavailable):
			w.logger.Warn("evidence source unavailable, report stays pending",
				"report_id", report.ID, "error", err)
			return err
		default:
			return err
		}
	}

	if err := w.repo.UpdateReportScores(ctx, report); err != nil {
		w.logger.Error("failed to persist scores", "report_id", report.ID, "error", err)
		return err
	}

	w.logger.Info("report scored",
		"report_id", report.ID,
		"species", report.Species,
		"fused_risk", *report.FusedRisk,
		"triage_action", report.TriageAction,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	w.publishScored(ctx, report)

	if w.recompute != nil && *report.FusedRisk >= w.cfg.Fusion.RecomputeThreshold {
		if err := w.recompute.RunPass(ctx); err != nil {
			w.logger.Warn("post-scoring clustering pass failed", "error", err)
		}
	}

	return nil
}

func (w *Worker) publishScored(ctx context.Context, report *domain.Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := w.bus.Publish(ctx, domain.TopicReportScored, payload); err != nil {
		w.logger.Warn("publish scored report failed", "report_id", report.ID, "error", err)
	}

	if *report.FusedRisk >= w.cfg.Fusion.HighRisk {
		if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			w.logger.Warn("publish alert failed", "report_id", report.ID, "error", err)
		}
	}
}

// scheduledPass is the cron entry point for periodic reclustering.
func (w *Worker) scheduledPass() {
	ctx, cancel := context.WithTimeout(w.ctx, 5*time.Minute)
	defer cancel()

	if err := w.recompute.RunPass(ctx); err != nil {
		w.logger.Error("scheduled clustering pass failed", "error", err)
	}
}

// rescoreSweep is the cron entry point for retrying stranded reports.
func (w *Worker) rescoreSweep() {
	ctx, cancel := context.WithTimeout(w.ctx, 5*time.Minute)
	defer cancel()

	if err := w.RescorePending(ctx); err != nil {
		w.logger.Error("rescore sweep failed", "error", err)
	}
}

// RescorePending retries scoring for reports still in pending analysis,
// typically parked by an earlier evidence failure. A report whose
// evidence still does not resolve just stays pending for the next
// sweep.
func (w *Worker) RescorePending(ctx context.Context) error {
	reports, err := w.repo.ListUnscoredReports(ctx, w.cfg.Worker.RescoreBatch)
	if err != nil {
		return err
	}

	scored := 0
	for _, report := range reports {
		if err := w.ScoreAndPersist(ctx, report); err != nil {
			w.logger.Warn("rescore attempt failed", "report_id", report.ID, "error", err)
			continue
		}
		if report.FusedRisk != nil {
			scored++
		}
	}
	if len(reports) > 0 {
		w.logger.Info("rescore sweep finished", "attempted", len(reports), "scored", scored)
	}
	return nil
}
