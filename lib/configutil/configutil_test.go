package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name      string   `json:"name" yaml:"name"`
	Threshold int      `json:"threshold" yaml:"threshold"`
	Urls      []string `json:"urls" yaml:"urls"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		name: "base",
		threshold: 2,
	}`), 0644)
	require.Nil(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{threshold: 5}`), 0644)
	require.Nil(t, err)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Nil(t, err)
	require.Equal(t, "base", config.Name)
	require.Equal(t, 5, config.Threshold)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "screeners.yaml"), []byte("name: yaml\nurls:\n  - https://chartink.com/screener/a\n"), 0644)
	require.Nil(t, err)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "screeners.yaml"))
	require.Nil(t, err)
	require.Equal(t, "yaml", config.Name)
	require.Equal(t, []string{"https://chartink.com/screener/a"}, config.Urls)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}
