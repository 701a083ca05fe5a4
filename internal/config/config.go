package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultWorkerCount    = 4
	defaultMaxQueueSize   = 100
	defaultMaxUploadBytes = 20 << 20 // 20MB
	defaultJobTTL         = time.Hour
	defaultStatsWindow    = time.Hour
	defaultMaxMathDepth   = 200
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Artifact store. Conversions are kept in memory only when StoreURL is empty.
	StoreURL    string
	StoreAPIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Conversion
	PDFFallbackPdftotext bool
	StrictMath           bool
	MaxMathDepth         int

	// Rolling window for /api/stats
	StatsWindow time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("TYPSTGEST_API_KEY"),

		StoreURL:    os.Getenv("STORE_URL"),
		StoreAPIKey: os.Getenv("STORE_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", defaultWorkerCount),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", defaultMaxQueueSize),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),

		JobTTL: envDuration("JOB_TTL", defaultJobTTL),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		StrictMath:           envBool("STRICT_MATH", false),
		MaxMathDepth:         envInt("MAX_MATH_DEPTH", defaultMaxMathDepth),

		StatsWindow: envDuration("STATS_WINDOW", defaultStatsWindow),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = defaultMaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = defaultJobTTL
	}
	if cfg.MaxMathDepth <= 0 {
		cfg.MaxMathDepth = defaultMaxMathDepth
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = defaultStatsWindow
	}

	return cfg
}

// StoreEnabled reports whether converted documents are persisted.
func (c Config) StoreEnabled() bool {
	return c.StoreURL != ""
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TYPSTGEST_API_KEY is required")
	}
	if c.StoreEnabled() && c.StoreAPIKey == "" {
		return fmt.Errorf("STORE_API_KEY is required when STORE_URL is set")
	}
	return nil
}

func envOr(key, fallback string) string {
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
