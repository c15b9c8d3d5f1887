package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ROUTEPULSE_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Database.Enabled)
	require.Equal(t, filepath.Join(home, ".local", "share", "routepulse", "telemetry.db"), cfg.Database.Path)
	require.Equal(t, 16*time.Millisecond, cfg.UI.FrameInterval)
	require.Equal(t, 2*time.Second, cfg.Telemetry.SinkTimeout)
	require.Equal(t, "index", cfg.UI.StartRoute)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
enabled = false

[ui]
frame_interval = "40ms"
start_route = "reports.monthly"
`), 0o644))
	t.Setenv("ROUTEPULSE_CONFIG", path)
	t.Setenv("ROUTEPULSE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Database.Enabled)
	require.Equal(t, 40*time.Millisecond, cfg.UI.FrameInterval)
	require.Equal(t, "reports.monthly", cfg.UI.StartRoute)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui\nframe_interval = "), 0o644))
	t.Setenv("ROUTEPULSE_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("ROUTEPULSE_CONFIG", path)

	want := Config{
		Database:  DatabaseConfig{Path: "/tmp/t.db", Enabled: true},
		Telemetry: TelemetryConfig{LogEvents: false, SinkTimeout: time.Second},
		UI:        UIConfig{FrameInterval: 25 * time.Millisecond, RoutesFile: "/tmp/routes.toml", StartRoute: "settings"},
		Log:       LogConfig{Level: "warn", File: "/tmp/routepulse.log"},
	}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}
