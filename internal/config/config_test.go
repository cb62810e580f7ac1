package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.DBPath)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "droproute.electrodes", cfg.NATSSubject)
	assert.Equal(t, -1, cfg.NATSMaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.NATSReconnectWait)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DROPROUTE_DB", "/tmp/runs.db")
	t.Setenv("DROPROUTE_NATS_URL", "nats://bus:4222")
	t.Setenv("DROPROUTE_NATS_SUBJECT", "lab.chip1")
	t.Setenv("DROPROUTE_NATS_RECONNECT_WAIT", "250ms")
	t.Setenv("DROPROUTE_LOG_LEVEL", "debug")
	t.Setenv("DROPROUTE_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/runs.db", cfg.DBPath)
	assert.Equal(t, "nats://bus:4222", cfg.NATSURL)
	assert.Equal(t, "lab.chip1", cfg.NATSSubject)
	assert.Equal(t, 250*time.Millisecond, cfg.NATSReconnectWait)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Error(t *testing.T) {
	t.Setenv("DROPROUTE_NATS_MAX_RECONNECTS", "many")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)

	logger.Debug("hello", "run_id", "r1")
	assert.Contains(t, buf.String(), `"run_id":"r1"`)

	buf.Reset()
	logger, err = NewLogger(&buf, "warn", "text")
	require.NoError(t, err)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
