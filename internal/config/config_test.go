package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigPassesValidation(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsInvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "NOPE"
	assert.Error(t, Validate(cfg))
}

func TestLoadWithoutConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Network.Endpoints)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", loaded.Logging.Level)
	assert.Equal(t, cfg.Network.Endpoints, loaded.Network.Endpoints)
}
