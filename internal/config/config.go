package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// #region types

// Config is the daemon's environment-driven configuration.
type Config struct {
	Link      LinkConfig
	Session   SessionConfig
	Journal   JournalConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
	Debug     bool
}

// LinkConfig locates the device bridge.
type LinkConfig struct {
	URL         string
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// SessionConfig tunes the game engine.
type SessionConfig struct {
	Difficulty string
	ResetDelay time.Duration
}

// JournalConfig locates the event journal; empty Path disables journaling.
type JournalConfig struct {
	Path string
}

// MetricsConfig controls the debug/metrics HTTP listener; 0 disables it.
type MetricsConfig struct {
	Port int
}

// TelemetryConfig locates the optional MQTT broker; empty Broker disables
// telemetry.
type TelemetryConfig struct {
	Broker string
	Topic  string
}

// #endregion types

// #region load

// Load reads configuration from the environment with defaults suitable for
// a local simbridge.
func Load() (*Config, error) {
	cfg := &Config{
		Link: LinkConfig{
			URL:         getEnv("LOCKBOX_WS_URL", "ws://localhost:8765"),
			BackoffBase: time.Duration(getEnvInt("LOCKBOX_BACKOFF_BASE_MS", 500)) * time.Millisecond,
			BackoffMax:  time.Duration(getEnvInt("LOCKBOX_BACKOFF_MAX_MS", 30000)) * time.Millisecond,
		},
		Session: SessionConfig{
			Difficulty: getEnv("LOCKBOX_DIFFICULTY", "normal"),
			ResetDelay: time.Duration(getEnvInt("LOCKBOX_RESET_DELAY_MS", 3000)) * time.Millisecond,
		},
		Journal: JournalConfig{
			Path: getEnv("LOCKBOX_DB", "lockbox.db"),
		},
		Metrics: MetricsConfig{
			Port: getEnvInt("LOCKBOX_METRICS_PORT", 9090),
		},
		Telemetry: TelemetryConfig{
			Broker: getEnv("LOCKBOX_MQTT_BROKER", ""),
			Topic:  getEnv("LOCKBOX_MQTT_TOPIC", "lockbox/events"),
		},
		Debug: getEnvBool("LOCKBOX_DEBUG", false),
	}

	if cfg.Link.URL == "" {
		return nil, fmt.Errorf("LOCKBOX_WS_URL must not be empty")
	}
	if cfg.Link.BackoffBase <= 0 || cfg.Link.BackoffMax < cfg.Link.BackoffBase {
		return nil, fmt.Errorf("backoff window invalid: base=%s max=%s",
			cfg.Link.BackoffBase, cfg.Link.BackoffMax)
	}
	return cfg, nil
}

// #endregion load

// #region helpers

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// #endregion helpers
