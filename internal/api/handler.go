package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JoanathanPS/alienbuster/internal/cluster"
	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/fusion"
	"github.com/JoanathanPS/alienbuster/internal/review"
	"github.com/JoanathanPS/alienbuster/internal/triage"
)

// Pipeline scores a saved report and persists the derived fields. The
// worker satisfies this; the handler stays decoupled from the event bus
// wiring behind it.
type Pipeline interface {
	ScoreAndPersist(ctx context.Context, r *domain.Report) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	cfg      *domain.Config
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	scorer   *fusion.Scorer
	pipeline Pipeline
	reviews  *review.Service
	clusters *cluster.Engine
	rules    *triage.Engine
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(cfg *domain.Config, repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *fusion.Scorer, pipeline Pipeline, reviews *review.Service, clusters *cluster.Engine, rules *triage.Engine, version string) *Handler {
	return &Handler{
		cfg:      cfg,
		repo:     repo,
		cache:    cache,
		bus:      bus,
		scorer:   scorer,
		pipeline: pipeline,
		reviews:  reviews,
		clusters: clusters,
		rules:    rules,
		version:  version,
	}
}

// ReportResponse is the response for report ingestion and preview.
type ReportResponse struct {
	Report   *domain.Report `json:"report"`
	RiskBand string         `json:"riskBand,omitempty"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// CreateReport handles POST /reports: validates and saves the sighting,
// then scores it synchronously. A report whose evidence sources are
// down is accepted anyway and stays pending_analysis until a later
// scoring pass.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req domain.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if msg := validateReportRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	report := req.ToReport(uuid.New().String())

	if err := h.repo.SaveReport(ctx, report); err != nil {
		slog.Error("failed to save report", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save report",
		})
		return
	}

	status := http.StatusCreated
	if h.pipeline != nil {
		if err := h.pipeline.ScoreAndPersist(ctx, report); err != nil {
			slog.Error("scoring failed", "report_id", report.ID, "error", err)
		}
		if report.FusedRisk == nil {
			// Accepted but unscored; the rescore sweep retries it.
			status = http.StatusAccepted
		}
	} else if h.bus != nil {
		envelope, _ := json.Marshal(map[string]string{"id": report.ID})
		if err := h.bus.Publish(ctx, domain.TopicReportIngested, envelope); err != nil {
			slog.Error("failed to publish ingest event", "report_id", report.ID, "error", err)
		}
		status = http.StatusAccepted
	}

	resp := h.reportResponse(ctx, report, start)
	writeJSON(w, status, resp)
}

// FusionPreview handles POST /fusion/preview: scores a hypothetical
// sighting without persisting anything.
func (h *Handler) FusionPreview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if h.scorer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "scorer not available",
		})
		return
	}

	var req domain.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if msg := validateReportRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	report := req.ToReport(uuid.New().String())

	if err := h.scorer.Score(ctx, report); err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientEvidence):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "no usable evidence for this report",
			})
		case errors.Is(err, domain.ErrDataUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "evidence source unavailable",
			})
		default:
			slog.Error("preview scoring failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "scoring failed",
			})
		}
		return
	}

	resp := h.reportResponse(ctx, report, start)
	writeJSON(w, http.StatusOK, resp)
}

// GetReport retrieves a report by ID.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	report, err := h.repo.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "report not found",
			})
			return
		}
		slog.Error("failed to get report", "id", reportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load report",
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// NearbyReports handles GET /reports/nearby?lat=&lon=&radius_km=&days=&limit=.
func (h *Handler) NearbyReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil || !validCoordinates(lat, lon) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "lat and lon are required and must be valid coordinates",
		})
		return
	}

	radiusKm := queryFloat(q.Get("radius_km"), h.cfg.Density.RadiusKm)
	days := queryInt(q.Get("days"), h.cfg.Density.WindowDays)
	limit := queryInt(q.Get("limit"), 100)
	since := time.Now().UTC().AddDate(0, 0, -days)

	reports, err := h.repo.ListNearbyReports(ctx, lat, lon, radiusKm, since, limit)
	if err != nil {
		slog.Error("nearby report query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to query nearby reports",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// ReviewQueue handles GET /review/queue?min_risk=&limit=.
func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	minRisk := queryFloat(q.Get("min_risk"), 0)
	limit := queryInt(q.Get("limit"), 50)

	reports, err := h.reviews.Queue(ctx, minRisk, limit)
	if err != nil {
		slog.Error("review queue query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load review queue",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// ReviewRequest is the request body for review decisions.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes,omitempty"`
}

// ReviewReport handles POST /reports/{id}/review.
func (h *Handler) ReviewReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if !domain.ValidReportDecision(req.Decision) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "decision must be one of verified, rejected, needs_more_info",
		})
		return
	}
	if req.Reviewer == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "reviewer is required",
		})
		return
	}

	decision, err := h.reviews.Apply(ctx, reportID, req.Decision, req.Reviewer, req.Notes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "report not found",
			})
			return
		}
		slog.Error("review decision failed", "report_id", reportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to apply decision",
		})
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// ListDecisions handles GET /reports/{id}/decisions.
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "id")

	decisions, err := h.reviews.Decisions(ctx, reportID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "report not found",
			})
			return
		}
		slog.Error("decision log query failed", "report_id", reportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load decisions",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

// ListOutbreaks handles GET /outbreaks?status=.
func (h *Handler) ListOutbreaks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses, ok := statusFilter(r.URL.Query().Get("status"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "status must be one of active, monitoring, resolved",
		})
		return
	}

	outbreaks, err := h.repo.ListOutbreaks(ctx, statuses)
	if err != nil {
		slog.Error("outbreak query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load outbreaks",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outbreaks": outbreaks,
		"count":     len(outbreaks),
	})
}

// GetOutbreak retrieves an outbreak by ID.
func (h *Handler) GetOutbreak(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	outbreakID := chi.URLParam(r, "id")

	ob, err := h.repo.GetOutbreak(ctx, outbreakID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "outbreak not found",
			})
			return
		}
		slog.Error("failed to get outbreak", "id", outbreakID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load outbreak",
		})
		return
	}

	writeJSON(w, http.StatusOK, ob)
}

// RecomputeOutbreaks handles POST /outbreaks/recompute: runs a full
// clustering pass on demand.
func (h *Handler) RecomputeOutbreaks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.clusters == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "clustering engine not available",
		})
		return
	}

	if err := h.clusters.RunPass(ctx); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "clustering pass lost a concurrency race, retry later",
			})
			return
		}
		slog.Error("clustering pass failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "clustering pass failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "clustering pass completed",
	})
}

// ResolveOutbreak handles POST /outbreaks/{id}/resolve. Resolution is
// the only outbreak transition that requires a human.
func (h *Handler) ResolveOutbreak(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	outbreakID := chi.URLParam(r, "id")

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Reviewer == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "reviewer is required",
		})
		return
	}

	decision, err := h.reviews.ResolveOutbreak(ctx, outbreakID, req.Reviewer, req.Notes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "outbreak not found",
			})
			return
		}
		slog.Error("outbreak resolution failed", "outbreak_id", outbreakID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to resolve outbreak",
		})
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// ListTriageRules returns the rules currently loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /triage/rules/reload.
func (h *Handler) ListTriageRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.rules.Rules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loaded,
		"count":  len(loaded),
		"source": "database",
	})
}

// CreateTriageRule creates a new triage rule and saves it to the
// database. After saving, call POST /triage/rules/reload to hot-reload
// into the engine.
func (h *Handler) CreateTriageRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rule domain.TriageRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if rule.ID == "" || rule.Name == "" || rule.Expression == "" || rule.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, expression, and action are required",
		})
		return
	}

	if err := h.rules.Validate(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveTriageRule(ctx, &rule); err != nil {
		slog.Error("failed to save triage rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("triage rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /triage/rules/reload to apply changes.",
	})
}

// ReloadTriageRules reloads all triage rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadTriageRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbRules, err := h.repo.ListTriageRules(ctx)
	if err != nil {
		slog.Error("failed to list triage rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.rules.Load(dbRules); err != nil {
		slog.Error("failed to reload triage rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("triage rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   h.rules.RulesCount(),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func (h *Handler) reportResponse(ctx context.Context, report *domain.Report, start time.Time) *ReportResponse {
	resp := &ReportResponse{Report: report}
	if report.FusedRisk != nil {
		resp.RiskBand = domain.RiskBand(*report.FusedRisk, h.cfg.Fusion)
	}
	resp.Metadata.TraceID = GetTraceID(ctx)
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version
	return resp
}

func validateReportRequest(req *domain.ReportRequest) string {
	if !validCoordinates(req.Lat, req.Lon) {
		return "lat must be in [-90, 90] and lon in [-180, 180]"
	}
	if req.MLConfidence != nil && (*req.MLConfidence < 0 || *req.MLConfidence > 1) {
		return "mlConfidence must be between 0 and 1"
	}
	return ""
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func statusFilter(raw string) ([]string, bool) {
	if raw == "" {
		return nil, true
	}
	var statuses []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		switch s {
		case domain.OutbreakActive, domain.OutbreakMonitoring, domain.OutbreakResolved:
			statuses = append(statuses, s)
		default:
			return nil, false
		}
	}
	return statuses, true
}

func queryFloat(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
