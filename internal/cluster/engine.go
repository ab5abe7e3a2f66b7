package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/geo"
)

// maxPassRetries bounds how often a pass restarts after losing the
// commit race to a concurrent writer.
const maxPassRetries = 3

// Engine recomputes outbreaks from the current high-risk report set.
// A pass reads one consistent snapshot, clusters per species, folds the
// result into the existing outbreaks, and commits the whole batch
// atomically.
type Engine struct {
	repo   domain.Repository
	bus    domain.EventBus
	cfg    domain.ClusterConfig
	logger *slog.Logger
}

// NewEngine creates a clustering engine.
func NewEngine(repo domain.Repository, bus domain.EventBus, cfg domain.ClusterConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, bus: bus, cfg: cfg, logger: logger}
}

// RunPass executes one full clustering pass. When the commit detects a
// concurrent outbreak modification the entire pass restarts from a
// fresh snapshot; partial results are never patched in.
func (e *Engine) RunPass(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= maxPassRetries; attempt++ {
		err := e.runOnce(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		lastErr = err
		e.logger.Warn("clustering pass lost commit race, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("clustering pass retries exhausted: %w", lastErr)
}

func (e *Engine) runOnce(ctx context.Context) error {
	since := time.Now().UTC().AddDate(0, 0, -e.cfg.WindowDays)
	reports, err := e.repo.HighRiskSnapshot(ctx, e.cfg.MinRisk, since)
	if err != nil {
		return fmt.Errorf("snapshot high-risk reports: %w", err)
	}

	existing, err := e.repo.ListOutbreaks(ctx, []string{domain.OutbreakActive, domain.OutbreakMonitoring})
	if err != nil {
		return fmt.Errorf("list unresolved outbreaks: %w", err)
	}

	upserts := e.fold(reports, existing)
	if len(upserts) == 0 {
		return nil
	}

	if err := e.repo.CommitOutbreaks(ctx, upserts); err != nil {
		return err
	}

	e.publish(ctx, upserts)
	e.logger.Info("clustering pass committed",
		"reports", len(reports),
		"outbreaks", len(upserts))
	return nil
}

// fold merges freshly clustered outbreaks with the existing unresolved
// set and returns the batch to commit.
func (e *Engine) fold(reports []*domain.Report, existing []*domain.Outbreak) []domain.OutbreakUpsert {
	bySpecies := make(map[string][]*domain.Report)
	var species []string
	for _, r := range reports {
		if _, ok := bySpecies[r.Species]; !ok {
			species = append(species, r.Species)
		}
		bySpecies[r.Species] = append(bySpecies[r.Species], r)
	}
	sort.Strings(species)

	now := time.Now().UTC()
	matched := make(map[string]bool)
	var upserts []domain.OutbreakUpsert

	for _, sp := range species {
		points := make([]Point, 0, len(bySpecies[sp]))
		for _, r := range bySpecies[sp] {
			points = append(points, Point{ID: r.ID, Lat: r.Lat, Lon: r.Lon, Risk: *r.FusedRisk})
		}
		clusters, _ := Run(points, e.cfg.EpsKm, e.cfg.MinPoints)
		for _, members := range clusters {
			candidate := e.summarize(sp, members, bySpecies[sp], now)
			prior := e.matchExisting(candidate, existing, matched)
			upserts = append(upserts, e.reconcile(candidate, prior, now))
		}
	}

	// Unmatched unresolved outbreaks stay on the books; an outbreak
	// going quiet only downgrades to monitoring after the cooldown.
	for _, ob := range existing {
		if matched[ob.ID] {
			continue
		}
		if ob.Status == domain.OutbreakActive && now.Sub(ob.LastMemberAt) > e.cooldown() {
			cooled := *ob
			cooled.Status = domain.OutbreakMonitoring
			cooled.UpdatedAt = now
			expected := ob.UpdatedAt
			upserts = append(upserts, domain.OutbreakUpsert{Outbreak: &cooled, ExpectedUpdatedAt: &expected})
		}
	}

	return upserts
}

// summarize builds the outbreak geometry for one cluster.
func (e *Engine) summarize(species string, members []Member, reports []*domain.Report, now time.Time) *domain.Outbreak {
	createdAt := make(map[string]time.Time, len(reports))
	for _, r := range reports {
		createdAt[r.ID] = r.CreatedAt
	}

	ob := &domain.Outbreak{
		Species:     species,
		Status:      domain.OutbreakActive,
		ReportCount: len(members),
	}

	var sumLat, sumLon, sumRisk float64
	for _, m := range members {
		sumLat += m.Lat
		sumLon += m.Lon
		sumRisk += m.Risk
		ob.MemberIDs = append(ob.MemberIDs, m.ID)
		if t := createdAt[m.ID]; t.After(ob.LastMemberAt) {
			ob.LastMemberAt = t
		}
	}
	sort.Strings(ob.MemberIDs)
	n := float64(len(members))
	ob.CentroidLat = sumLat / n
	ob.CentroidLon = sumLon / n
	ob.MeanRisk = sumRisk / n

	for _, m := range members {
		d := geo.DistanceKm(ob.CentroidLat, ob.CentroidLon, m.Lat, m.Lon)
		if d > ob.RadiusKm {
			ob.RadiusKm = d
		}
	}
	return ob
}

// matchExisting finds the nearest unresolved same-species outbreak
// within the merge distance that has not already been claimed this pass.
func (e *Engine) matchExisting(candidate *domain.Outbreak, existing []*domain.Outbreak, matched map[string]bool) *domain.Outbreak {
	var best *domain.Outbreak
	bestDist := e.cfg.MergeKm
	for _, ob := range existing {
		if matched[ob.ID] || ob.Species != candidate.Species {
			continue
		}
		d := geo.DistanceKm(candidate.CentroidLat, candidate.CentroidLon, ob.CentroidLat, ob.CentroidLon)
		if d <= bestDist {
			best = ob
			bestDist = d
		}
	}
	if best != nil {
		matched[best.ID] = true
	}
	return best
}

// reconcile turns a clustered candidate into an upsert, carrying over
// identity and history from a matched prior outbreak.
func (e *Engine) reconcile(candidate, prior *domain.Outbreak, now time.Time) domain.OutbreakUpsert {
	candidate.UpdatedAt = now
	if prior == nil {
		candidate.ID = uuid.New().String()
		candidate.CreatedAt = now
		return domain.OutbreakUpsert{Outbreak: candidate}
	}

	candidate.ID = prior.ID
	candidate.CreatedAt = prior.CreatedAt
	if candidate.LastMemberAt.Before(prior.LastMemberAt) {
		candidate.LastMemberAt = prior.LastMemberAt
	}
	if now.Sub(candidate.LastMemberAt) > e.cooldown() {
		candidate.Status = domain.OutbreakMonitoring
	}
	expected := prior.UpdatedAt
	return domain.OutbreakUpsert{Outbreak: candidate, ExpectedUpdatedAt: &expected}
}

func (e *Engine) cooldown() time.Duration {
	return time.Duration(e.cfg.CooldownDays) * 24 * time.Hour
}

func (e *Engine) publish(ctx context.Context, upserts []domain.OutbreakUpsert) {
	if e.bus == nil {
		return
	}
	for _, u := range upserts {
		payload, err := json.Marshal(u.Outbreak)
		if err != nil {
			continue
		}
		if err := e.bus.Publish(ctx, domain.TopicOutbreakUpdated, payload); err != nil {
			e.logger.Warn("publish outbreak update failed", "outbreak_id", u.Outbreak.ID, "error", err)
		}
	}
}
