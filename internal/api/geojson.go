package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON feature with a point geometry.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   PointGeometry          `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// PointGeometry is a GeoJSON point. Coordinates are [lon, lat].
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func pointFeature(lat, lon float64, props map[string]interface{}) Feature {
	return Feature{
		Type: "Feature",
		Geometry: PointGeometry{
			Type:        "Point",
			Coordinates: [2]float64{lon, lat},
		},
		Properties: props,
	}
}

// GeoReports handles GET /geo/reports?bbox=minLon,minLat,maxLon,maxLat&limit=.
// Without a bbox the whole dataset is returned, newest first.
func (h *Handler) GeoReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	bbox, err := parseBBox(q.Get("bbox"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "bbox must be minLon,minLat,maxLon,maxLat",
		})
		return
	}
	limit := queryInt(q.Get("limit"), 1000)

	reports, err := h.repo.ListReportsBBox(ctx, bbox, limit)
	if err != nil {
		slog.Error("bbox report query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to query reports",
		})
		return
	}

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(reports))}
	for _, rep := range reports {
		props := map[string]interface{}{
			"id":        rep.ID,
			"status":    rep.Status,
			"createdAt": rep.CreatedAt,
		}
		if rep.Species != "" {
			props["species"] = rep.Species
		}
		if rep.FusedRisk != nil {
			props["fusedRisk"] = *rep.FusedRisk
			props["riskBand"] = domain.RiskBand(*rep.FusedRisk, h.cfg.Fusion)
		}
		if rep.TriageAction != "" {
			props["triageAction"] = rep.TriageAction
		}
		fc.Features = append(fc.Features, pointFeature(rep.Lat, rep.Lon, props))
	}

	writeJSON(w, http.StatusOK, fc)
}

// GeoOutbreaks handles GET /geo/outbreaks?status=. Each outbreak is a
// point at its centroid; radiusKm in the properties carries the extent.
func (h *Handler) GeoOutbreaks(w http.ResponseWriter, r *http.Request) {
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
			"error": "failed to query outbreaks",
		})
		return
	}

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(outbreaks))}
	for _, ob := range outbreaks {
		props := map[string]interface{}{
			"id":           ob.ID,
			"species":      ob.Species,
			"status":       ob.Status,
			"radiusKm":     ob.RadiusKm,
			"reportCount":  ob.ReportCount,
			"meanRisk":     ob.MeanRisk,
			"lastMemberAt": ob.LastMemberAt,
		}
		fc.Features = append(fc.Features, pointFeature(ob.CentroidLat, ob.CentroidLon, props))
	}

	writeJSON(w, http.StatusOK, fc)
}

// parseBBox parses a GeoJSON-order bbox string. An empty string means
// the whole world.
func parseBBox(raw string) (*domain.BBox, error) {
	if raw == "" {
		return &domain.BBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, strconv.ErrSyntax
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &domain.BBox{
		MinLon: vals[0],
		MinLat: vals[1],
		MaxLon: vals[2],
		MaxLat: vals[3],
	}, nil
}
