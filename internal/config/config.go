package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration
type Config struct {
	GoogleAPIKey string
	Port         string
	AppName      string
	Model        string

	// LangGraph Platform deployment holding thread history
	PlatformURL     string
	LangSmithAPIKey string
	PlatformTimeout time.Duration

	// Agent settings
	AgentTimeout time.Duration
	UserID       string
	StateTTL     time.Duration

	LogLevel string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY environment variable is required")
	}

	cfg := &Config{
		GoogleAPIKey:    apiKey,
		Port:            getEnv("PORT", "8000"),
		AppName:         getEnv("APP_NAME", "agui-platform-runner"),
		Model:           getEnv("MODEL", "gemini-2.5-flash"),
		PlatformURL:     getEnv("LANGGRAPH_URL", "http://localhost:8123"),
		LangSmithAPIKey: os.Getenv("LANGSMITH_API_KEY"),
		UserID:          getEnv("USER_ID", "demo_user"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PlatformTimeout, err = getEnvDuration("PLATFORM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AgentTimeout, err = getEnvDuration("AGENT_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.StateTTL, err = getEnvDuration("STATE_TTL", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, val)
	}
	return d, nil
}
