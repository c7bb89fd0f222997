package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/coderoom/coderoom/internal/exec"
)

type Config struct {
	// Client
	RelayURL       string        // websocket endpoint of the collaboration backend
	TypingTTL      time.Duration // how long an inbound typing hint stays visible
	TypingInterval time.Duration // outbound typing rate limit; 0 = every edit
	ExecTimeout    time.Duration // pending execution timeout; 0 = unbounded

	// Relay
	Bind string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		RelayURL: getEnvDefault("CODEROOM_RELAY_URL", "ws://localhost:8080/ws"),
		Bind:     getEnvDefault("CODEROOM_BIND", ":8080"),
	}

	var err error
	if cfg.TypingTTL, err = getEnvDuration("CODEROOM_TYPING_TTL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.TypingInterval, err = getEnvDuration("CODEROOM_TYPING_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.ExecTimeout, err = getEnvDuration("CODEROOM_EXEC_TIMEOUT", exec.DefaultTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
