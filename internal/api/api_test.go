package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/bus"
	"github.com/JoanathanPS/alienbuster/internal/cluster"
	"github.com/JoanathanPS/alienbuster/internal/domain"
	"github.com/JoanathanPS/alienbuster/internal/evidence"
	"github.com/JoanathanPS/alienbuster/internal/fusion"
	"github.com/JoanathanPS/alienbuster/internal/repository"
	"github.com/JoanathanPS/alienbuster/internal/review"
	"github.com/JoanathanPS/alienbuster/internal/triage"
	"github.com/JoanathanPS/alienbuster/internal/worker"
)

// stubProvider serves deterministic NDVI values: a recent window reads
// 0.45 against a 0.65 baseline, a clear vegetation loss.
type stubProvider struct{}

func (p *stubProvider) GetNDVI(ctx context.Context, lat, lon, radiusM float64, window domain.Window) (*domain.NDVISummary, error) {
	mean := 0.45
	if window.Start.Before(time.Now().AddDate(0, 0, -180)) {
		mean = 0.65
	}
	return &domain.NDVISummary{Mean: mean, Window: window}, nil
}

func (p *stubProvider) LandcoverShift(ctx context.Context, lat, lon, radiusM float64, recent, baseline domain.Window) (*float64, error) {
	shift := 0.2
	return &shift, nil
}

// newTestServer wires a full stack on a temp sqlite database with the
// stub satellite provider and the default triage rules.
func newTestServer(t *testing.T) (*Server, domain.Repository) {
	t.Helper()

	f, err := os.CreateTemp("", "alienbuster-api-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db: %v", err)
	}
	f.Close()

	cfg := domain.DefaultConfig()
	cfg.Repository = domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: f.Name(),
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	eventBus := bus.NewChannelBus(16)
	t.Cleanup(func() {
		eventBus.Close()
		repo.Close()
		os.Remove(f.Name())
	})

	density := evidence.NewDensityEstimator(repo.NearbyCount, cfg.Density)
	satellite := evidence.NewSatelliteEvaluator(&stubProvider{}, cfg.Satellite, nil)
	gatherer := evidence.NewGatherer(density, satellite, nil)

	rules, err := triage.NewEngine()
	if err != nil {
		t.Fatalf("failed to create triage engine: %v", err)
	}
	if err := rules.Load(triage.DefaultRules()); err != nil {
		t.Fatalf("failed to load default rules: %v", err)
	}

	scorer := fusion.NewScorer(gatherer, rules, cfg.Fusion, nil)
	clusters := cluster.NewEngine(repo, eventBus, cfg.Cluster, nil)
	reviews := review.NewService(repo, eventBus, clusters, nil)
	pipeline := worker.NewWorker(eventBus, repo, scorer, clusters, *cfg, nil)

	return NewServer(cfg, repo, nil, eventBus, scorer, pipeline, reviews, clusters, rules, "test-v1"), repo
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func reportBody(lat, lon float64, species string, confidence float64) map[string]interface{} {
	return map[string]interface{}{
		"lat":          lat,
		"lon":          lon,
		"species":      species,
		"mlConfidence": confidence,
		"isInvasive":   true,
		"reporter":     "volunteer-7",
	}
}

func TestCreateReportEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("SuccessfulIngestion", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(42.36, -71.06, "ailanthus-altissima", 0.9))

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp ReportResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Report == nil || resp.Report.ID == "" {
			t.Fatal("expected report with id in response")
		}
		if resp.Report.FusedRisk == nil {
			t.Fatal("expected fused risk on synchronous ingestion")
		}
		if resp.Report.Status != domain.StatusPendingReview {
			t.Errorf("expected status pending_review, got %s", resp.Report.Status)
		}
		if resp.Report.TriageAction == "" {
			t.Error("expected a triage action")
		}
		if resp.RiskBand == "" {
			t.Error("expected a risk band")
		}
		if resp.Metadata.Version != "test-v1" {
			t.Errorf("expected version test-v1, got %s", resp.Metadata.Version)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}

		// Round trip through GET.
		get := doJSON(t, server, http.MethodGet, "/reports/"+resp.Report.ID, nil)
		if get.Code != http.StatusOK {
			t.Fatalf("expected status 200 on get, got %d", get.Code)
		}
		var fetched domain.Report
		if err := json.Unmarshal(get.Body.Bytes(), &fetched); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if fetched.FusedRisk == nil || *fetched.FusedRisk != *resp.Report.FusedRisk {
			t.Error("persisted fused risk does not match response")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString("not-json"))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidCoordinates", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(95.0, -71.06, "x", 0.5))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidConfidence", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(42.0, -71.0, "x", 1.5))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownReport", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/reports/no-such-id", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestFusionPreview(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/fusion/preview", reportBody(42.36, -71.06, "lycorma-delicatula", 0.8))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ReportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Report.FusedRisk == nil {
		t.Fatal("expected fused risk in preview")
	}

	// Preview must not persist anything.
	get := doJSON(t, server, http.MethodGet, "/reports/"+resp.Report.ID, nil)
	if get.Code != http.StatusNotFound {
		t.Errorf("expected preview report to be absent, got status %d", get.Code)
	}
}

func TestNearbyReports(t *testing.T) {
	server, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(42.36+float64(i)*0.001, -71.06, "ailanthus-altissima", 0.7))
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed ingestion failed: %d", rr.Code)
		}
	}

	t.Run("MissingCoordinates", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/reports/nearby", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("FindsNeighbours", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/reports/nearby?lat=42.36&lon=-71.06&radius_km=5", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 3 {
			t.Errorf("expected 3 nearby reports, got %d", resp.Count)
		}
	})
}

func TestReviewFlow(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(42.36, -71.06, "ailanthus-altissima", 0.9))
	if rr.Code != http.StatusCreated {
		t.Fatalf("ingestion failed: %d", rr.Code)
	}
	var created ReportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	reportID := created.Report.ID

	t.Run("QueueContainsReport", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/review/queue", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Reports []*domain.Report `json:"reports"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		found := false
		for _, rep := range resp.Reports {
			if rep.ID == reportID {
				found = true
			}
		}
		if !found {
			t.Error("expected the scored report in the review queue")
		}
	})

	t.Run("InvalidDecision", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports/"+reportID+"/review", map[string]string{
			"decision": "maybe", "reviewer": "dr-green",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingReviewer", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports/"+reportID+"/review", map[string]string{
			"decision": "verified",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownReport", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports/no-such-id/review", map[string]string{
			"decision": "verified", "reviewer": "dr-green",
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("ApplyDecision", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/reports/"+reportID+"/review", map[string]string{
			"decision": "verified", "reviewer": "dr-green", "notes": "confirmed on site",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		get := doJSON(t, server, http.MethodGet, "/reports/"+reportID, nil)
		var rep domain.Report
		if err := json.Unmarshal(get.Body.Bytes(), &rep); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if rep.Status != domain.StatusVerified {
			t.Errorf("expected status verified, got %s", rep.Status)
		}
	})

	t.Run("DecisionLog", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/reports/"+reportID+"/decisions", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 decision, got %d", resp.Count)
		}
	})
}

func TestOutbreakEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	// Three tightly packed high-confidence sightings of the same
	// species; the post-scoring recompute pass clusters them.
	for i := 0; i < 3; i++ {
		rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(42.360+float64(i)*0.002, -71.060, "lycorma-delicatula", 0.99))
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed ingestion failed: %d: %s", rr.Code, rr.Body.String())
		}
	}

	var outbreakID string

	t.Run("ListActive", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/outbreaks?status=active", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Outbreaks []*domain.Outbreak `json:"outbreaks"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(resp.Outbreaks) != 1 {
			t.Fatalf("expected 1 active outbreak, got %d", len(resp.Outbreaks))
		}
		outbreakID = resp.Outbreaks[0].ID
		if resp.Outbreaks[0].ReportCount != 3 {
			t.Errorf("expected 3 members, got %d", resp.Outbreaks[0].ReportCount)
		}
	})

	t.Run("GetOutbreak", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/outbreaks/"+outbreakID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var ob domain.Outbreak
		if err := json.Unmarshal(rr.Body.Bytes(), &ob); err != nil {
			t.Fatalf("failed to parse outbreak: %v", err)
		}
		if ob.Species != "lycorma-delicatula" {
			t.Errorf("unexpected species %s", ob.Species)
		}
		if len(ob.MemberIDs) != 3 {
			t.Errorf("expected 3 member ids, got %d", len(ob.MemberIDs))
		}
	})

	t.Run("InvalidStatusFilter", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/outbreaks?status=bogus", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Recompute", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/outbreaks/recompute", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("GeoOutbreaks", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/geo/outbreaks?status=active", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var fc FeatureCollection
		if err := json.Unmarshal(rr.Body.Bytes(), &fc); err != nil {
			t.Fatalf("failed to parse feature collection: %v", err)
		}
		if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
			t.Fatalf("expected 1 outbreak feature, got %d", len(fc.Features))
		}
		if fc.Features[0].Geometry.Type != "Point" {
			t.Errorf("expected point geometry, got %s", fc.Features[0].Geometry.Type)
		}
	})

	t.Run("ResolveRequiresReviewer", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/outbreaks/"+outbreakID+"/resolve", map[string]string{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/outbreaks/"+outbreakID+"/resolve", map[string]string{
			"reviewer": "dr-green", "notes": "eradication confirmed",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		list := doJSON(t, server, http.MethodGet, "/outbreaks?status=resolved", nil)
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 resolved outbreak, got %d", resp.Count)
		}
	})

	t.Run("ResolveUnknown", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/outbreaks/no-such-id/resolve", map[string]string{
			"reviewer": "dr-green",
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestGeoReports(t *testing.T) {
	server, _ := newTestServer(t)

	coords := [][2]float64{{42.36, -71.06}, {42.37, -71.05}, {51.50, -0.12}}
	for _, c := range coords {
		rr := doJSON(t, server, http.MethodPost, "/reports", reportBody(c[0], c[1], "ailanthus-altissima", 0.7))
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed ingestion failed: %d", rr.Code)
		}
	}

	t.Run("BBoxFilter", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/geo/reports?bbox=-71.1,42.3,-71.0,42.4", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var fc FeatureCollection
		if err := json.Unmarshal(rr.Body.Bytes(), &fc); err != nil {
			t.Fatalf("failed to parse feature collection: %v", err)
		}
		if len(fc.Features) != 2 {
			t.Errorf("expected 2 features inside bbox, got %d", len(fc.Features))
		}
	})

	t.Run("NoBBoxReturnsAll", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/geo/reports", nil)
		var fc FeatureCollection
		if err := json.Unmarshal(rr.Body.Bytes(), &fc); err != nil {
			t.Fatalf("failed to parse feature collection: %v", err)
		}
		if len(fc.Features) != 3 {
			t.Errorf("expected 3 features, got %d", len(fc.Features))
		}
	})

	t.Run("MalformedBBox", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/geo/reports?bbox=1,2,3", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestTriageRuleEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("ListDefaults", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/triage/rules", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != len(triage.DefaultRules()) {
			t.Errorf("expected %d rules, got %d", len(triage.DefaultRules()), resp.Count)
		}
	})

	t.Run("CreateInvalidExpression", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/triage/rules", domain.TriageRule{
			ID: "bad", Name: "Bad", Expression: "fused_risk >", Action: "desk_review", Enabled: true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CreateMissingFields", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/triage/rules", domain.TriageRule{ID: "x"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CreateAndReload", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/triage/rules", domain.TriageRule{
			ID:         "coastal-watch",
			Name:       "Coastal watch",
			Expression: `species == "carcinus-maenas" && fused_risk >= 0.4`,
			Action:     "field_survey",
			Priority:   15,
			Enabled:    true,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		reload := doJSON(t, server, http.MethodPost, "/triage/rules/reload", nil)
		if reload.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", reload.Code, reload.Body.String())
		}

		// The engine now holds exactly the persisted rules.
		list := doJSON(t, server, http.MethodGet, "/triage/rules", nil)
		var resp struct {
			Rules []*domain.TriageRule `json:"rules"`
		}
		if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(resp.Rules) != 1 || resp.Rules[0].ID != "coastal-watch" {
			t.Fatalf("expected the persisted rule after reload, got %+v", resp.Rules)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/health", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/ready", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
