package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("THUMBCODE_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8420, cfg.Server.Port)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBaseURL)
	assert.Equal(t, "https://github.com/login/device/code", cfg.GitHub.DeviceCodeURL)
	assert.Equal(t, 180, cfg.GitHub.MaxAttempts)
	assert.Equal(t, 2, cfg.Orchestrator.MaxWorkers)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("THUMBCODE_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9999\ngithub:\n  client_id: Iv1.test\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "Iv1.test", cfg.GitHub.ClientID)
	// Untouched keys keep their defaults.
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefaultDirHonorsEnv(t *testing.T) {
	t.Setenv("THUMBCODE_HOME", "/tmp/custom-home")
	assert.Equal(t, "/tmp/custom-home", DefaultDir())
}
