package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.QueueBaseWindow)
	assert.Equal(t, 500, cfg.QueueMaxWindow)
	assert.Equal(t, 30*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 3, cfg.MaxIdleStrikes)
	assert.Equal(t, 32.0, cfg.EloKFactor)
	assert.False(t, cfg.EventRelayEnabled)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PVP_QUEUE_BASE_WINDOW", "80")
	t.Setenv("PVP_TURN_TIMEOUT", "15s")
	t.Setenv("PVP_MAX_TURNS", "not-a-number")
	t.Setenv("EVENT_RELAY_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://game.example , ,https://admin.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.QueueBaseWindow)
	assert.Equal(t, 15*time.Second, cfg.TurnTimeout)
	assert.Equal(t, 200, cfg.MaxTurns, "invalid number falls back to default")
	assert.True(t, cfg.EventRelayEnabled)
	assert.Equal(t, []string{"https://game.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("운영 환경 기본 시크릿", func(t *testing.T) {
		t.Setenv("ENV", "production")
		t.Setenv("JWT_SECRET", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("최대 범위가 기본보다 작음", func(t *testing.T) {
		t.Setenv("PVP_QUEUE_BASE_WINDOW", "300")
		t.Setenv("PVP_QUEUE_MAX_WINDOW", "200")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, parseDuration("2m", time.Second))
	assert.Equal(t, time.Second, parseDuration("soon", time.Second))
}
