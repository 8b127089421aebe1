package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Backend
	BackendURL  string
	HTTPTimeout time.Duration

	// Room watched by the watch command (--room overrides)
	RoomID string

	// Cycle delays
	RetryDelay      time.Duration
	SkipDelay       time.Duration
	NextDelay       time.Duration
	AnnounceTimeout time.Duration

	// PlayerCommand is fed the audio on stdin. Empty discards audio.
	PlayerCommand string

	// DatabasePath is the SQLite history file. Empty disables history.
	DatabasePath string

	// MetricsAddr serves /metrics and /healthz. Empty disables the server.
	MetricsAddr string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:8080"),
		RoomID:        getEnv("ROOM_ID", ""),
		PlayerCommand: lookupEnv("PLAYER_COMMAND", "ffplay -nodisp -autoexit -loglevel quiet -"),
		DatabasePath:  lookupEnv("DATABASE_PATH", "data/trendcard.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"RETRY_DELAY", "2s", &cfg.RetryDelay},
		{"SKIP_DELAY", "5s", &cfg.SkipDelay},
		{"NEXT_DELAY", "1s", &cfg.NextDelay},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"ANNOUNCE_TIMEOUT", "5s", &cfg.AnnounceTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// Validate checks the configuration shared by every command.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}

	for _, d := range []struct {
		key string
		val time.Duration
	}{
		{"RETRY_DELAY", c.RetryDelay},
		{"SKIP_DELAY", c.SkipDelay},
		{"NEXT_DELAY", c.NextDelay},
		{"HTTP_TIMEOUT", c.HTTPTimeout},
		{"ANNOUNCE_TIMEOUT", c.AnnounceTimeout},
	} {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, d.val)
		}
	}
	return nil
}

// ValidateForWatch checks configuration needed to run the cycle for a room.
func (c *Config) ValidateForWatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.RoomID == "" {
		return fmt.Errorf("ROOM_ID is required for watch")
	}
	return nil
}

// ValidateForHistory checks configuration needed by the history commands.
func (c *Config) ValidateForHistory() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// HistoryEnabled reports whether shown trends are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// lookupEnv is like getEnv but keeps an explicitly empty value.
func lookupEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}
