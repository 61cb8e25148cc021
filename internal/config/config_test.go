package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"

address:
  postcode: "7545AA"
  house_number: "12"

resources:
  - grey
  - paper
  - today

logging:
  level: "debug"
  format: "text"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, "7545AA", config.Address.Postcode)
	assert.Equal(t, "12", config.Address.HouseNumber)
	assert.Equal(t, "debug", config.Logging.Level)

	// Resource keys are uppercased to match upstream labels.
	assert.Equal(t, []string{"GREY", "PAPER", "TODAY"}, config.Resources)

	// Untouched sections fall back to defaults.
	assert.Equal(t, "https://wasteapi.2go-mobile.com/api", config.API.URL)
	assert.Equal(t, 30, config.API.TimeoutSeconds)
	assert.Equal(t, 5.0, config.Server.RateLimit)
}

func TestLoadDefaultsAddress(t *testing.T) {
	configPath := writeConfig(t, `
resources:
  - GREY
`)

	config, err := Load(configPath)
	require.NoError(t, err)

	// The schema fallback address passes validation but is not meaningful.
	assert.Equal(t, "1111AA", config.Address.Postcode)
	assert.Equal(t, "1", config.Address.HouseNumber)
}

func TestLoadRequiresResources(t *testing.T) {
	configPath := writeConfig(t, `
address:
  postcode: "7545AA"
  house_number: "12"
`)

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one resource")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
