package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.URL != "ws://localhost:8765" {
		t.Fatalf("default URL: %s", cfg.Link.URL)
	}
	if cfg.Session.Difficulty != "normal" {
		t.Fatalf("default difficulty: %s", cfg.Session.Difficulty)
	}
	if cfg.Link.BackoffMax != 30*time.Second {
		t.Fatalf("default backoff cap: %s", cfg.Link.BackoffMax)
	}
	if cfg.Telemetry.Broker != "" {
		t.Fatal("telemetry should default to disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOCKBOX_WS_URL", "ws://bridge:9999")
	t.Setenv("LOCKBOX_DIFFICULTY", "hard")
	t.Setenv("LOCKBOX_DEBUG", "true")
	t.Setenv("LOCKBOX_BACKOFF_BASE_MS", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.URL != "ws://bridge:9999" {
		t.Fatalf("URL override: %s", cfg.Link.URL)
	}
	if cfg.Session.Difficulty != "hard" || !cfg.Debug {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Link.BackoffBase != 100*time.Millisecond {
		t.Fatalf("backoff override: %s", cfg.Link.BackoffBase)
	}
}

func TestLoadRejectsInvalidBackoffWindow(t *testing.T) {
	t.Setenv("LOCKBOX_BACKOFF_BASE_MS", "5000")
	t.Setenv("LOCKBOX_BACKOFF_MAX_MS", "100")

	if _, err := Load(); err == nil {
		t.Fatal("max < base should be rejected")
	}
}

func TestMalformedIntFallsBack(t *testing.T) {
	t.Setenv("LOCKBOX_METRICS_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Metrics.Port != 9090 {
		t.Fatalf("expected fallback port, got %d", cfg.Metrics.Port)
	}
}
