package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxlHim26/gview-server/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.RestAddr)
	assert.Equal(t, "0.0.0.0:8081", cfg.Server.WSAddr)
	assert.Equal(t, "/ws", cfg.Server.WSPath)
	assert.Equal(t, 512*1024, cfg.Relay.MaxDecodedBytes)
	assert.Equal(t, 30*time.Second, cfg.Schedule.LivenessSweep)
	assert.Equal(t, 60*time.Second, cfg.Schedule.LivenessTimeout)
	assert.Equal(t, 5*time.Second, cfg.Schedule.MetricsSummary)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  restAddr: "127.0.0.1:9090"
  wsPath: "/signal"
storage:
  path: "/tmp/gview-test"
relay:
  maxDecodedBytes: 65536
schedule:
  livenessSweep: 10s
  livenessTimeout: 20s
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.RestAddr)
	assert.Equal(t, "/signal", cfg.Server.WSPath)
	assert.Equal(t, "/tmp/gview-test", cfg.Storage.Path)
	assert.Equal(t, 65536, cfg.Relay.MaxDecodedBytes)
	assert.Equal(t, 10*time.Second, cfg.Schedule.LivenessSweep)
	assert.Equal(t, 20*time.Second, cfg.Schedule.LivenessTimeout)
	// Unset keys keep their defaults.
	assert.Equal(t, "0.0.0.0:8081", cfg.Server.WSAddr)
}
