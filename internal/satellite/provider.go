// Package satellite talks to the external remote-sensing service that
// supplies NDVI window summaries and land-cover drift.
package satellite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// HTTPProvider implements domain.NDVIProvider over the provider's REST
// API. Every failure mode maps to domain.ErrDataUnavailable so callers
// can treat provider trouble uniformly as an absent evidence channel.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a provider client. The timeout bounds each
// individual request.
func NewHTTPProvider(cfg domain.SatelliteConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: cfg.ProviderURL,
		apiKey:  cfg.ProviderKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type ndviResponse struct {
	Mean  float64 `json:"mean"`
	Start string  `json:"window_start"`
	End   string  `json:"window_end"`
}

type landcoverResponse struct {
	Shift *float64 `json:"shift"`
}

// GetNDVI fetches the mean NDVI over a circular area for a time window.
func (p *HTTPProvider) GetNDVI(ctx context.Context, lat, lon, radiusM float64, window domain.Window) (*domain.NDVISummary, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius_m", strconv.FormatFloat(radiusM, 'f', -1, 64))
	q.Set("start", window.Start.UTC().Format(time.RFC3339))
	q.Set("end", window.End.UTC().Format(time.RFC3339))

	var resp ndviResponse
	if err := p.get(ctx, "/v1/ndvi", q, &resp); err != nil {
		return nil, err
	}
	return &domain.NDVISummary{Mean: resp.Mean, Window: window}, nil
}

// LandcoverShift fetches the land-cover class drift magnitude between
// two windows. A nil shift means the provider had no classification for
// the area, which is not an error.
func (p *HTTPProvider) LandcoverShift(ctx context.Context, lat, lon, radiusM float64, recent, baseline domain.Window) (*float64, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius_m", strconv.FormatFloat(radiusM, 'f', -1, 64))
	q.Set("recent_start", recent.Start.UTC().Format(time.RFC3339))
	q.Set("recent_end", recent.End.UTC().Format(time.RFC3339))
	q.Set("baseline_start", baseline.Start.UTC().Format(time.RFC3339))
	q.Set("baseline_end", baseline.End.UTC().Format(time.RFC3339))

	var resp landcoverResponse
	if err := p.get(ctx, "/v1/landcover-shift", q, &resp); err != nil {
		return nil, err
	}
	return resp.Shift, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrDataUnavailable, err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provider returned %d", domain.ErrDataUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrDataUnavailable, err)
	}
	return nil
}
