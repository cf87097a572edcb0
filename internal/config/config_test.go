package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 18890, cfg.Gateway.Port)
	assert.Equal(t, 64, cfg.Runtime.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Gateway.Port = 9000
	cfg.Gateway.APIKey = "secret"
	cfg.Redis.URL = "redis://localhost:6379"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, loaded.Gateway.Port)
	assert.Equal(t, "secret", loaded.Gateway.APIKey)
	assert.Equal(t, "redis://localhost:6379", loaded.Redis.URL)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gateway": {"port": 7777}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Gateway.Port)
	assert.Equal(t, 64, cfg.Runtime.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	doc := `agents:
  - type: system_monitor
    session_id: system
    interval: 30
  - type: notification_manager
    session_id: system
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Len(t, m.Agents, 2)

	assert.Equal(t, "system_monitor", m.Agents[0].Type)
	assert.Equal(t, "system", m.Agents[0].SessionID)
	require.NotNil(t, m.Agents[0].Interval)
	assert.Equal(t, 30.0, *m.Agents[0].Interval)
	assert.Nil(t, m.Agents[1].Interval)
}

func TestLoadManifestMissingFile(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLoadManifestRejectsIncompleteAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents:\n  - type: system_monitor\n"), 0644))

	_, err := LoadManifest(path)
	assert.Error(t, err)
}
