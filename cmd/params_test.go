package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/net2share/wrtctl/client"
)

func TestSetup_ReadsConfigOnce(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		configPath, verbose, timeout = "", false, 0
	})

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hostname: router.lan\ntimeout: 3s\nlog:\n  level: warn\n"), 0600))
	configPath, verbose, timeout = path, false, 0

	cfg, err := setup()
	require.NoError(t, err)
	assert.Equal(t, "router.lan", cfg.Hostname)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)

	ctx := context.Background()
	assert.True(t, cfg.Logger.Enabled(ctx, slog.LevelWarn))
	assert.False(t, cfg.Logger.Enabled(ctx, slog.LevelInfo))
}

func TestSetup_VerboseAndTimeoutFlags(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		configPath, verbose, timeout = "", false, 0
	})

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0600))
	configPath, verbose, timeout = path, true, 2*time.Second

	cfg, err := setup()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.True(t, cfg.Logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetup_InvalidConfig(t *testing.T) {
	t.Cleanup(func() { configPath = "" })

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 0\n"), 0600))
	configPath = path

	_, err := setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestToFileConfig_KeepsLogLevel(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.Hostname = "router.lan"
	cfg.LogLevel = "debug"

	fc := toFileConfig(cfg)
	require.NotNil(t, fc.Hostname)
	assert.Equal(t, "router.lan", *fc.Hostname)
	assert.Equal(t, "debug", fc.Log.Level)
	require.NoError(t, fc.Validate())
}
