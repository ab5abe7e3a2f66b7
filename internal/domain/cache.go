package domain

import (
	"context"
	"time"
)

// Cache defines the caching contract. NDVI window summaries are the main
// payload: satellite windows span weeks, so a fetched mean stays valid for
// hours and a cache hit saves two provider round-trips per fusion run.
type Cache interface {
	// Get retrieves a value from cache. Returns nil, nil on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetNDVI retrieves a cached NDVI window summary.
	GetNDVI(ctx context.Context, key string) (*NDVISummary, error)

	// SetNDVI caches an NDVI window summary.
	SetNDVI(ctx context.Context, key string, s *NDVISummary, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
