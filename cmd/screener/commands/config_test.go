package commands

import (
	"os"
	"path/filepath"
	"screener-backend/internal/scan"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "screener.db", config.Database.File)
	require.Equal(t, 8080, config.Http.Port)
	require.True(t, config.rodOptions().Headless)
	require.Equal(t, scan.DefaultPacing, config.scanOptions().Pacing)
}

func TestLoadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		http: { port: 9000, access_token: "shared" },
		browser: { headless: false, page_load_timeout_seconds: 30 },
		pacing_ms: 0,
		screeners: ["https://chartink.com/screener/a"],
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		http: { access_token: "mine" },
		capture: { attempts: 4, interval_ms: 250 },
	}`), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 9000, config.Http.Port)
	require.Equal(t, "mine", config.Http.AccessToken)
	require.False(t, config.rodOptions().Headless)
	require.Equal(t, 30*time.Second, config.rodOptions().PageLoadTimeout)
	require.Equal(t, time.Duration(0), config.scanOptions().Pacing)
	require.Equal(t, 4, config.engineOptions().CaptureAttempts)
	require.Equal(t, 250*time.Millisecond, config.engineOptions().CaptureInterval)
	require.Equal(t, []string{"https://chartink.com/screener/a"}, config.Screeners)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{ http: `), 0644))
	_, err := LoadConfig(path)
	require.Error(t, err)
}
