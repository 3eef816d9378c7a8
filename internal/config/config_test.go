package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	for _, k := range []string{"PORT", "APP_NAME", "MODEL", "LANGGRAPH_URL", "LANGSMITH_API_KEY",
		"PLATFORM_TIMEOUT", "AGENT_TIMEOUT", "USER_ID", "STATE_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "http://localhost:8123", cfg.PlatformURL)
	assert.Empty(t, cfg.LangSmithAPIKey)
	assert.Equal(t, 10*time.Second, cfg.PlatformTimeout)
	assert.Equal(t, 60*time.Second, cfg.AgentTimeout)
	assert.Equal(t, time.Hour, cfg.StateTTL)
	assert.Equal(t, "demo_user", cfg.UserID)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("PORT", "9000")
	t.Setenv("LANGGRAPH_URL", "https://deploy.example")
	t.Setenv("LANGSMITH_API_KEY", "ls")
	t.Setenv("AGENT_TIMEOUT", "2m")
	t.Setenv("STATE_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "https://deploy.example", cfg.PlatformURL)
	assert.Equal(t, "ls", cfg.LangSmithAPIKey)
	assert.Equal(t, 2*time.Minute, cfg.AgentTimeout)
	assert.Equal(t, 30*time.Minute, cfg.StateTTL)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("PLATFORM_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "PLATFORM_TIMEOUT")

	t.Setenv("PLATFORM_TIMEOUT", "-1s")
	_, err = Load()
	assert.Error(t, err)
}
