package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env and restore after test
	origEnv := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, e := range origEnv {
			for i := 0; i < len(e); i++ {
				if e[i] == '=' {
					os.Setenv(e[:i], e[i+1:])
					break
				}
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
		assert.Equal(t, "", cfg.RoomID)
		assert.Equal(t, 2*time.Second, cfg.RetryDelay)
		assert.Equal(t, 5*time.Second, cfg.SkipDelay)
		assert.Equal(t, time.Second, cfg.NextDelay)
		assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, 5*time.Second, cfg.AnnounceTimeout)
		assert.Equal(t, "ffplay -nodisp -autoexit -loglevel quiet -", cfg.PlayerCommand)
		assert.Equal(t, "data/trendcard.db", cfg.DatabasePath)
		assert.Equal(t, "", cfg.MetricsAddr)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.True(t, cfg.HistoryEnabled())
	})

	t.Run("custom values", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("BACKEND_URL", "https://trends.example.com")
		os.Setenv("ROOM_ID", "lobby")
		os.Setenv("RETRY_DELAY", "500ms")
		os.Setenv("SKIP_DELAY", "1m")
		os.Setenv("METRICS_ADDR", ":9090")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://trends.example.com", cfg.BackendURL)
		assert.Equal(t, "lobby", cfg.RoomID)
		assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
		assert.Equal(t, time.Minute, cfg.SkipDelay)
		assert.Equal(t, ":9090", cfg.MetricsAddr)
	})

	t.Run("explicitly empty player and database", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("PLAYER_COMMAND", "")
		os.Setenv("DATABASE_PATH", "")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "", cfg.PlayerCommand)
		assert.Equal(t, "", cfg.DatabasePath)
		assert.False(t, cfg.HistoryEnabled())
	})

	t.Run("invalid duration", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("NEXT_DELAY", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "NEXT_DELAY")
	})
}

func validConfig() *Config {
	return &Config{
		BackendURL:      "http://localhost:8080",
		RetryDelay:      2 * time.Second,
		SkipDelay:       5 * time.Second,
		NextDelay:       time.Second,
		HTTPTimeout:     10 * time.Second,
		AnnounceTimeout: 5 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("relative backend url", func(t *testing.T) {
		cfg := validConfig()
		cfg.BackendURL = "localhost:8080/api"
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "BACKEND_URL")
	})

	t.Run("non-positive delay", func(t *testing.T) {
		cfg := validConfig()
		cfg.SkipDelay = 0
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "SKIP_DELAY")
	})
}

func TestConfig_ValidateForWatch(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig()
		cfg.RoomID = "lobby"
		assert.NoError(t, cfg.ValidateForWatch())
	})

	t.Run("missing room", func(t *testing.T) {
		err := validConfig().ValidateForWatch()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ROOM_ID")
	})
}

func TestConfig_ValidateForHistory(t *testing.T) {
	cfg := validConfig()
	err := cfg.ValidateForHistory()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_PATH")

	cfg.DatabasePath = "test.db"
	assert.NoError(t, cfg.ValidateForHistory())
}
