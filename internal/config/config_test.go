package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	cfg := mgr.Get()
	assert.Equal(t, "0.0.0.0:18089", cfg.General.ListenAddr)
	assert.Equal(t, 7000, cfg.Mover.MinDelayMS)
	assert.Equal(t, 60000, cfg.Mover.MaxDelayMS)
	assert.Equal(t, 2, cfg.Bridge.CharIntervalMS)
	assert.Equal(t, 4096, cfg.Bridge.QueueCapacity)
	assert.True(t, cfg.General.TrayEnabled)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	mgr, err := NewManager(path)
	require.NoError(t, err)

	cfg := mgr.Get()
	cfg.General.APIToken = "sekrit"
	cfg.Mover.MinDelayMS = 5000
	cfg.Mover.MaxDelayMS = 9000
	require.NoError(t, mgr.Save())

	reread, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, reread.Load())

	got := reread.Get()
	assert.Equal(t, "sekrit", got.General.APIToken)
	assert.Equal(t, 5000, got.Mover.MinDelayMS)
	assert.Equal(t, 9000, got.Mover.MaxDelayMS)
}

func TestLoadNormalizesBrokenValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	broken := `{
  "general": {"listen_addr": ""},
  "mover": {"min_delay_ms": -5, "max_delay_ms": 2},
  "bridge": {"char_interval_ms": 0, "queue_capacity": -1}
}`
	require.NoError(t, os.WriteFile(path, []byte(broken), 0644))

	mgr, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	cfg := mgr.Get()
	assert.Equal(t, "0.0.0.0:18089", cfg.General.ListenAddr)
	assert.Equal(t, 7000, cfg.Mover.MinDelayMS)
	assert.Equal(t, 60000, cfg.Mover.MaxDelayMS)
	assert.Equal(t, 2, cfg.Bridge.CharIntervalMS)
	assert.Equal(t, 4096, cfg.Bridge.QueueCapacity)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	mgr, err := NewManager(path)
	require.NoError(t, err)
	assert.Error(t, mgr.Load())
}
