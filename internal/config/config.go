package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration
type Config struct {
	Port     string
	DBPath   string
	SeedPath string // optional JSON POI dump imported at startup

	ClusterTTL     time.Duration
	POITTL         time.Duration
	SweepInterval  time.Duration
	RequestTimeout time.Duration

	ChunkSize      int
	ChunkTimeout   time.Duration
	MinClusterSize int

	RateLimit int // requests per minute per IP
}

// Load reads configuration from the environment, falling back to the
// reference defaults everywhere.
func Load() *Config {
	return &Config{
		Port:           envString("PORT", ":8080"),
		DBPath:         envString("DB_PATH", "./data/pois.db"),
		SeedPath:       envString("POI_SEED", ""),
		ClusterTTL:     envDuration("CLUSTER_CACHE_TTL", 5*time.Minute),
		POITTL:         envDuration("POI_CACHE_TTL", 5*time.Minute),
		SweepInterval:  envDuration("CACHE_SWEEP_INTERVAL", 60*time.Second),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 10*time.Second),
		ChunkSize:      envInt("CHUNK_SIZE", 100),
		ChunkTimeout:   envDuration("CHUNK_TIMEOUT", 5*time.Second),
		MinClusterSize: envInt("MIN_CLUSTER_SIZE", 2),
		RateLimit:      envInt("RATE_LIMIT", 600),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
