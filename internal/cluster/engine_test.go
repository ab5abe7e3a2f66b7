package cluster

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

func f64(v float64) *float64 { return &v }

func report(id, species string, lat, lon, risk float64, createdAt time.Time) *domain.Report {
	return &domain.Report{
		ID: id, Species: species, Lat: lat, Lon: lon,
		FusedRisk: f64(risk), CreatedAt: createdAt,
	}
}

func testEngine(cfg domain.ClusterConfig) *Engine {
	return NewEngine(nil, nil, cfg, nil)
}

func TestFoldCreatesOutbreak(t *testing.T) {
	cfg := domain.DefaultConfig().Cluster
	cfg.MinPoints = 2
	e := testEngine(cfg)

	now := time.Now().UTC()
	reports := []*domain.Report{
		report("a", "ailanthus", 10.0, 10.0, 0.9, now),
		report("b", "ailanthus", 10.01, 10.0, 0.85, now),
		report("c", "ailanthus", 10.5, 10.5, 0.92, now),
	}

	upserts := e.fold(reports, nil)
	if len(upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(upserts))
	}
	ob := upserts[0].Outbreak
	if ob.ID == "" {
		t.Error("new outbreak must get an ID")
	}
	if upserts[0].ExpectedUpdatedAt != nil {
		t.Error("new outbreak must not carry an optimistic check")
	}
	if ob.Status != domain.OutbreakActive {
		t.Errorf("Status = %q, want active", ob.Status)
	}
	if math.Abs(ob.CentroidLat-10.005) > 1e-9 || math.Abs(ob.CentroidLon-10.0) > 1e-9 {
		t.Errorf("centroid = (%f,%f), want (10.005,10.0)", ob.CentroidLat, ob.CentroidLon)
	}
	if math.Abs(ob.MeanRisk-0.875) > 1e-9 {
		t.Errorf("MeanRisk = %f, want 0.875", ob.MeanRisk)
	}
	if len(ob.MemberIDs) != 2 || ob.MemberIDs[0] != "a" || ob.MemberIDs[1] != "b" {
		t.Errorf("MemberIDs = %v, want [a b]", ob.MemberIDs)
	}
	if ob.RadiusKm <= 0 || ob.RadiusKm > 1.0 {
		t.Errorf("RadiusKm = %f, want extent of roughly half the pair distance", ob.RadiusKm)
	}
}

func TestFoldClustersNeverSpanSpecies(t *testing.T) {
	cfg := domain.DefaultConfig().Cluster
	cfg.MinPoints = 2
	e := testEngine(cfg)

	now := time.Now().UTC()
	reports := []*domain.Report{
		report("a", "ailanthus", 10.0, 10.0, 0.9, now),
		report("b", "ailanthus", 10.01, 10.0, 0.9, now),
		report("c", "pueraria", 10.0, 10.0, 0.9, now),
		report("d", "pueraria", 10.01, 10.0, 0.9, now),
	}

	upserts := e.fold(reports, nil)
	if len(upserts) != 2 {
		t.Fatalf("got %d upserts, want one outbreak per species", len(upserts))
	}
	if upserts[0].Outbreak.Species == upserts[1].Outbreak.Species {
		t.Error("outbreaks share a species")
	}
}

func TestFoldMergesIntoExisting(t *testing.T) {
	cfg := domain.DefaultConfig().Cluster
	cfg.MinPoints = 2
	e := testEngine(cfg)

	now := time.Now().UTC()
	prior := &domain.Outbreak{
		ID: "ob-1", Species: "ailanthus",
		CentroidLat: 10.004, CentroidLon: 10.0,
		Status:    domain.OutbreakActive,
		CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-time.Hour),
		LastMemberAt: now.Add(-48 * time.Hour),
	}
	reports := []*domain.Report{
		report("a", "ailanthus", 10.0, 10.0, 0.9, now),
		report("b", "ailanthus", 10.01, 10.0, 0.85, now),
	}

	upserts := e.fold(reports, []*domain.Outbreak{prior})
	if len(upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(upserts))
	}
	ob := upserts[0].Outbreak
	if ob.ID != "ob-1" {
		t.Errorf("ID = %q, want merged into ob-1", ob.ID)
	}
	if !ob.CreatedAt.Equal(prior.CreatedAt) {
		t.Error("merge must preserve original CreatedAt")
	}
	if upserts[0].ExpectedUpdatedAt == nil || !upserts[0].ExpectedUpdatedAt.Equal(prior.UpdatedAt) {
		t.Error("merged upsert must carry the prior UpdatedAt for the optimistic check")
	}
	if ob.Status != domain.OutbreakActive {
		t.Errorf("Status = %q, want active after fresh members", ob.Status)
	}
}

func TestFoldCooldownToMonitoring(t *testing.T) {
	cfg := domain.DefaultConfig().Cluster
	cfg.MinPoints = 2
	e := testEngine(cfg)

	now := time.Now().UTC()
	stale := now.AddDate(0, 0, -cfg.CooldownDays-5)
	reports := []*domain.Report{
		report("a", "ailanthus", 10.0, 10.0, 0.9, stale),
		report("b", "ailanthus", 10.01, 10.0, 0.85, stale),
	}
	prior := &domain.Outbreak{
		ID: "ob-1", Species: "ailanthus",
		CentroidLat: 10.005, CentroidLon: 10.0,
		Status:    domain.OutbreakActive,
		CreatedAt: stale, UpdatedAt: now.Add(-time.Hour), LastMemberAt: stale,
	}

	upserts := e.fold(reports, []*domain.Outbreak{prior})
	if len(upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(upserts))
	}
	if upserts[0].Outbreak.Status != domain.OutbreakMonitoring {
		t.Errorf("Status = %q, want monitoring after cooldown with no new members", upserts[0].Outbreak.Status)
	}
}

func TestFoldQuietOutbreakNeverResolves(t *testing.T) {
	cfg := domain.DefaultConfig().Cluster
	e := testEngine(cfg)

	now := time.Now().UTC()
	stale := now.AddDate(0, 0, -cfg.CooldownDays-10)
	prior := &domain.Outbreak{
		ID: "ob-1", Species: "ailanthus",
		CentroidLat: 10.0, CentroidLon: 10.0,
		Status:    domain.OutbreakActive,
		CreatedAt: stale, UpdatedAt: stale, LastMemberAt: stale,
	}

	// No surviving reports at all: the outbreak cools to monitoring but
	// is never resolved by the engine.
	upserts := e.fold(nil, []*domain.Outbreak{prior})
	if len(upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(upserts))
	}
	if got := upserts[0].Outbreak.Status; got != domain.OutbreakMonitoring {
		t.Errorf("Status = %q, want monitoring", got)
	}
}

type raceRepo struct {
	domain.Repository
	commits int
	failUntil int
}

func (r *raceRepo) HighRiskSnapshot(ctx context.Context, minRisk float64, since time.Time) ([]*domain.Report, error) {
	now := time.Now().UTC()
	return []*domain.Report{
		report("a", "ailanthus", 10.0, 10.0, 0.9, now),
		report("b", "ailanthus", 10.01, 10.0, 0.85, now),
		report("c", "ailanthus", 10.012, 10.0, 0.88, now),
	}, nil
}

func (r *raceRepo) ListOutbreaks(ctx context.Context, statuses []string) ([]*domain.Outbreak, error) {
	return nil, nil
}

func (r *raceRepo) CommitOutbreaks(ctx context.Context, upserts []domain.OutbreakUpsert) error {
	r.commits++
	if r.commits <= r.failUntil {
		return domain.ErrConcurrentModification
	}
	return nil
}

func TestRunPassRetriesOnCommitRace(t *testing.T) {
	repo := &raceRepo{failUntil: 2}
	e := NewEngine(repo, nil, domain.DefaultConfig().Cluster, nil)

	if err := e.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if repo.commits != 3 {
		t.Errorf("commits = %d, want 3 (two races then success)", repo.commits)
	}
}

func TestRunPassGivesUpAfterRetries(t *testing.T) {
	repo := &raceRepo{failUntil: 100}
	e := NewEngine(repo, nil, domain.DefaultConfig().Cluster, nil)

	err := e.RunPass(context.Background())
	if err == nil || !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("error = %v, want wrapped ErrConcurrentModification", err)
	}
}
