package satellite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoanathanPS/alienbuster/internal/domain"
)

// CachedProvider wraps an NDVI provider with the shared cache. NDVI
// window means are expensive provider calls and stable for a given
// area and window, so cache misses are the only calls that go out.
// ndviTTL bounds staleness of a cached window mean. Windows span weeks,
// so a few hours of staleness never changes the anomaly verdict.
const ndviTTL = 6 * time.Hour

type CachedProvider struct {
	inner  domain.NDVIProvider
	cache  domain.Cache
	logger *slog.Logger
}

// NewCachedProvider wraps inner with cache lookups.
func NewCachedProvider(inner domain.NDVIProvider, cache domain.Cache, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{inner: inner, cache: cache, logger: logger}
}

// GetNDVI serves from cache when possible. Cache failures fall through
// to the provider; a broken cache must not look like a provider outage.
func (p *CachedProvider) GetNDVI(ctx context.Context, lat, lon, radiusM float64, window domain.Window) (*domain.NDVISummary, error) {
	key := ndviKey(lat, lon, radiusM, window)

	if cached, err := p.cache.GetNDVI(ctx, key); err != nil {
		p.logger.Warn("NDVI cache read failed", "key", key, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	summary, err := p.inner.GetNDVI(ctx, lat, lon, radiusM, window)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		if err := p.cache.SetNDVI(ctx, key, summary, ndviTTL); err != nil {
			p.logger.Warn("NDVI cache write failed", "key", key, "error", err)
		}
	}
	return summary, nil
}

// LandcoverShift passes through uncached; shift queries are rare enough
// that caching them is not worth a second key scheme.
func (p *CachedProvider) LandcoverShift(ctx context.Context, lat, lon, radiusM float64, recent, baseline domain.Window) (*float64, error) {
	return p.inner.LandcoverShift(ctx, lat, lon, radiusM, recent, baseline)
}

// ndviKey buckets coordinates to three decimal places (~110 m) so that
// reports from the same stand of vegetation share a cache entry.
func ndviKey(lat, lon, radiusM float64, window domain.Window) string {
	return fmt.Sprintf("ndvi:%.3f:%.3f:%.0f:%s:%s",
		lat, lon, radiusM,
		window.Start.UTC().Format("2006-01-02"),
		window.End.UTC().Format("2006-01-02"))
}
