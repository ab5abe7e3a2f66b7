// Alienbuster - Invasive species risk fusion and outbreak detection.
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/api"
	"github.com/JoanathanPS/alienbuster/internal/bus"
	"github.com/JoanathanPS/alienbuster/internal/cache"
	"github.com/JoanathanPS/alienbuster/internal/cluster"
	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/evidence"
	"github.com/JoanathanPS/alienbuster/internal/fusion"
	"github.com/JoanathanPS/alienbuster/internal/repository"
	"github.com/JoanathanPS/alienbuster/internal/review"
	"github.com/JoanathanPS/alienbuster/internal/satellite"
	"github.com/JoanathanPS/alienbuster/internal/triage"
	"github.com/JoanathanPS/alienbuster/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("ALIENBUSTER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting alienbuster",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("ALIENBUSTER_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	if url := os.Getenv("ALIENBUSTER_SATELLITE_URL"); url != "" {
		cfg.Satellite.ProviderURL = url
		cfg.Satellite.ProviderKey = os.Getenv("ALIENBUSTER_SATELLITE_KEY")
	}
	if path := os.Getenv("ALIENBUSTER_DB_PATH"); path != "" && cfg.Repository.Driver == "sqlite" {
		cfg.Repository.SQLitePath = path
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize evidence channels. Without a configured provider the
	// satellite channel stays absent and fusion renormalizes around it.
	density := evidence.NewDensityEstimator(repo.NearbyCount, cfg.Density)

	var satEval *evidence.SatelliteEvaluator
	if cfg.Satellite.ProviderURL != "" {
		var provider domain.NDVIProvider = satellite.NewHTTPProvider(cfg.Satellite)
		provider = satellite.NewCachedProvider(provider, cacheImpl, logger)
		satEval = evidence.NewSatelliteEvaluator(provider, cfg.Satellite, logger)
		slog.Info("satellite provider initialized", "url", cfg.Satellite.ProviderURL)
	} else {
		slog.Warn("no satellite provider configured, scoring without vegetation change evidence")
	}

	gatherer := evidence.NewGatherer(density, satEval, logger)

	// Initialize Triage Engine
	rules, err := triage.NewEngine()
	if err != nil {
		slog.Error("failed to initialize triage engine", "error", err)
		os.Exit(1)
	}
	if err := loadTriageRules(ctx, repo, rules); err != nil {
		slog.Error("failed to load triage rules", "error", err)
		os.Exit(1)
	}
	slog.Info("triage engine initialized", "rules_count", rules.RulesCount())

	// Initialize Scorer and Clustering Engine
	scorer := fusion.NewScorer(gatherer, rules, cfg.Fusion, logger)
	clusters := cluster.NewEngine(repo, busImpl, cfg.Cluster, logger)
	reviews := review.NewService(repo, busImpl, clusters, logger)

	// Initialize Worker: scores ingested reports off the bus and runs
	// the scheduled clustering pass.
	scoringWorker := worker.NewWorker(busImpl, repo, scorer, clusters, *cfg, logger)
	if err := scoringWorker.Start(); err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	slog.Info("worker started", "cluster_schedule", cfg.Cluster.Schedule)

	// Initialize Server
	srv := api.NewServer(cfg, repo, cacheImpl, busImpl, scorer, scoringWorker, reviews, clusters, rules, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("alienbuster is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	scoringWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("alienbuster shutdown complete")
}

// loadTriageRules loads triage rules from the database into the engine,
// falling back to the built-in defaults when the store is empty.
func loadTriageRules(ctx context.Context, repo domain.Repository, engine *triage.Engine) error {
	dbRules, err := repo.ListTriageRules(ctx)
	if err != nil {
		slog.Warn("failed to list triage rules from database", "error", err)
		return engine.Load(triage.DefaultRules())
	}

	if len(dbRules) > 0 {
		slog.Info("loading triage rules from database", "count", len(dbRules))
		return engine.Load(dbRules)
	}

	slog.Info("no triage rules in database, loading defaults")
	return engine.Load(triage.DefaultRules())
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║             🌿 ALIENBUSTER                ║")
	fmt.Println("  ║   Invasive Species Outbreak Detection     ║")
	fmt.Println("  ║      Every sighting, weighed.             ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /reports                  - Ingest and score a sighting")
	fmt.Println("    GET  /reports/{id}             - Get report by ID")
	fmt.Println("    GET  /reports/nearby           - Reports around a point")
	fmt.Println("    POST /fusion/preview           - What-if scoring, no persistence")
	fmt.Println("    GET  /review/queue             - Reports awaiting expert review")
	fmt.Println("    POST /reports/{id}/review      - Apply a review decision")
	fmt.Println("    GET  /reports/{id}/decisions   - Decision audit log")
	fmt.Println("    GET  /outbreaks                - List outbreaks")
	fmt.Println("    POST /outbreaks/recompute      - Run a clustering pass")
	fmt.Println("    POST /outbreaks/{id}/resolve   - Resolve an outbreak")
	fmt.Println("    GET  /geo/reports              - Reports as GeoJSON")
	fmt.Println("    GET  /geo/outbreaks            - Outbreaks as GeoJSON")
	fmt.Println("    GET  /triage/rules             - List triage rules")
	fmt.Println("    POST /triage/rules             - Create a triage rule")
	fmt.Println("    POST /triage/rules/reload      - Hot-reload rules from database")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println()
}
