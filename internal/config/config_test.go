package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080/ws", cfg.RelayURL)
	require.Equal(t, ":8080", cfg.Bind)
	require.Equal(t, 2*time.Second, cfg.TypingTTL)
	require.Equal(t, time.Duration(0), cfg.TypingInterval)
	require.Equal(t, 30*time.Second, cfg.ExecTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CODEROOM_RELAY_URL", "ws://example.com/ws")
	t.Setenv("CODEROOM_TYPING_INTERVAL", "250ms")
	t.Setenv("CODEROOM_EXEC_TIMEOUT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws://example.com/ws", cfg.RelayURL)
	require.Equal(t, 250*time.Millisecond, cfg.TypingInterval)
	require.Equal(t, time.Duration(0), cfg.ExecTimeout)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("CODEROOM_TYPING_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
}
