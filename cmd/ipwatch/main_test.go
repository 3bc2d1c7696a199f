package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justin4957/logflow-ipwatch/internal/config"
)

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("IPWATCH_THRESHOLD", "25")
	t.Setenv("IPWATCH_LOG_DIR", "/srv/logs")
	t.Setenv("IPWATCH_MARKER", "/export.csv")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.DetectorConfig.ThresholdCount)
	assert.Equal(t, "/srv/logs", cfg.LogDir)
	assert.Equal(t, "/export.csv", cfg.Marker)
	assert.Equal(t, 600, cfg.DetectorConfig.TimeWindowSeconds)
}

func TestLoadConfig_RejectsInvalidOverride(t *testing.T) {
	t.Setenv("IPWATCH_WINDOW", "0")

	_, err := loadConfig()
	assert.ErrorContains(t, err, "time_window_seconds")
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogDir = t.TempDir()
	cfg.AlertConfig.Command = "true"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
