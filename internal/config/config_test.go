package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "TYPSTGEST_API_KEY", "STORE_URL", "WORKER_COUNT", "JOB_TTL", "STRICT_MATH", "MAX_MATH_DEPTH"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != defaultWorkerCount || cfg.MaxQueueSize != defaultMaxQueueSize {
		t.Errorf("unexpected pool defaults: %d workers, %d queue", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour || cfg.StatsWindow != time.Hour {
		t.Errorf("unexpected durations: ttl=%s window=%s", cfg.JobTTL, cfg.StatsWindow)
	}
	if cfg.StrictMath || !cfg.PDFFallbackPdftotext {
		t.Errorf("unexpected conversion defaults: strict=%v pdftotext=%v", cfg.StrictMath, cfg.PDFFallbackPdftotext)
	}
	if cfg.StoreEnabled() {
		t.Error("expected store to be disabled without STORE_URL")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("MAX_QUEUE_SIZE", "-1")
	t.Setenv("JOB_TTL", "10m")
	t.Setenv("STRICT_MATH", "true")
	t.Setenv("MAX_MATH_DEPTH", "not-a-number")
	t.Setenv("STORE_URL", "http://store:8080")

	cfg := Load()
	if cfg.Port != "9000" || cfg.WorkerCount != 8 {
		t.Errorf("expected overrides, got port=%q workers=%d", cfg.Port, cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != defaultMaxQueueSize {
		t.Errorf("expected non-positive queue size to fall back, got %d", cfg.MaxQueueSize)
	}
	if cfg.JobTTL != 10*time.Minute {
		t.Errorf("expected 10m ttl, got %s", cfg.JobTTL)
	}
	if !cfg.StrictMath {
		t.Error("expected strict math")
	}
	if cfg.MaxMathDepth != defaultMaxMathDepth {
		t.Errorf("expected unparsable depth to fall back, got %d", cfg.MaxMathDepth)
	}
	if !cfg.StoreEnabled() {
		t.Error("expected store to be enabled")
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("expected missing API key to fail")
	}
	if err := (Config{APIKey: "k", StoreURL: "http://store"}).Validate(); err == nil {
		t.Error("expected store without key to fail")
	}
	if err := (Config{APIKey: "k"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
