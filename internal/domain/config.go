package domain

import (
	"time"
)

// Config holds the complete engine configuration. Every threshold and
// weight used by a computation is passed in from here explicitly, so a
// scoring run is reproducible given the same inputs and config snapshot.
type Config struct {
	Server ServerConfig `json:"server"`

	Tier Tier `json:"tier"`

	Fusion    FusionConfig    `json:"fusion"`
	Density   DensityConfig   `json:"density"`
	Satellite SatelliteConfig `json:"satellite"`
	Cluster   ClusterConfig   `json:"cluster"`

	Worker WorkerConfig `json:"worker"`

	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// FusionConfig holds the component weights and display bands for risk
// fusion. Weights are renormalized over present components at fusion
// time; they do not need to sum to 1 here, but the defaults do.
type FusionConfig struct {
	MLWeight        float64 `json:"mlWeight"`
	DensityWeight   float64 `json:"densityWeight"`
	SatelliteWeight float64 `json:"satelliteWeight"`

	// Risk bands, used for filtering and sorting only.
	HighRisk   float64 `json:"highRisk"`
	MediumRisk float64 `json:"mediumRisk"`

	// RecomputeThreshold is the fused risk above which an ingest
	// triggers an outbreak recompute pass.
	RecomputeThreshold float64 `json:"recomputeThreshold"`
}

// DensityConfig holds the spatial density estimator parameters.
type DensityConfig struct {
	RadiusKm   float64       `json:"radiusKm"`
	WindowDays int           `json:"windowDays"`
	Timeout    time.Duration `json:"timeout"`
}

// SatelliteConfig holds the satellite change evaluator parameters.
type SatelliteConfig struct {
	// AnomalyThreshold is the negative NDVI change below which the
	// recent window counts as anomalous.
	AnomalyThreshold float64 `json:"anomalyThreshold"`

	// Score mapping: clamp01(base + LandcoverCoefficient*shift).
	AnomalyBase          float64 `json:"anomalyBase"`
	QuietBase            float64 `json:"quietBase"`
	LandcoverCoefficient float64 `json:"landcoverCoefficient"`

	RadiusM            float64       `json:"radiusM"`
	WindowDays         int           `json:"windowDays"`
	BaselineOffsetDays int           `json:"baselineOffsetDays"`
	Timeout            time.Duration `json:"timeout"`

	ProviderURL string `json:"providerUrl"`
	ProviderKey string `json:"-"`
}

// ClusterConfig holds the outbreak clustering parameters.
type ClusterConfig struct {
	MinRisk      float64 `json:"minRisk"`
	WindowDays   int     `json:"windowDays"`
	EpsKm        float64 `json:"epsKm"`
	MinPoints    int     `json:"minPoints"`
	CooldownDays int     `json:"cooldownDays"`
	MergeKm      float64 `json:"mergeKm"`

	// Schedule is a cron expression for the periodic clustering pass.
	Schedule string `json:"schedule"`
}

// WorkerConfig holds the background scoring worker settings.
type WorkerConfig struct {
	// RescoreSchedule is a cron expression for the sweep that retries
	// scoring of reports parked by an earlier evidence failure.
	RescoreSchedule string `json:"rescoreSchedule"`

	// RescoreBatch caps how many pending reports one sweep attempts.
	RescoreBatch int `json:"rescoreBatch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite, in-process channels and a local LRU.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, NATS and Redis.
	TierPro Tier = "pro"
)

// DefaultConfig returns the Community tier defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Fusion: FusionConfig{
			MLWeight:           0.45,
			DensityWeight:      0.30,
			SatelliteWeight:    0.25,
			HighRisk:           0.85,
			MediumRisk:         0.65,
			RecomputeThreshold: 0.75,
		},
		Density: DensityConfig{
			RadiusKm:   5.0,
			WindowDays: 30,
			Timeout:    5 * time.Second,
		},
		Satellite: SatelliteConfig{
			AnomalyThreshold:     -0.15,
			AnomalyBase:          0.8,
			QuietBase:            0.2,
			LandcoverCoefficient: 0.6,
			RadiusM:              1000,
			WindowDays:           45,
			BaselineOffsetDays:   365,
			Timeout:              10 * time.Second,
		},
		Cluster: ClusterConfig{
			MinRisk:      0.5,
			WindowDays:   90,
			EpsKm:        2.0,
			MinPoints:    3,
			CooldownDays: 30,
			MergeKm:      5.0,
			Schedule:     "@every 1h",
		},
		Worker: WorkerConfig{
			RescoreSchedule: "@every 10m",
			RescoreBatch:    100,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./alienbuster.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     6 * time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "alienbuster",
		},
	}
}

// ProConfig returns the Pro tier configuration.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "alienbuster",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
