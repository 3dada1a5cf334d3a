package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FACET_NODE_ID", "facet-9")
	t.Setenv("FACET_SENSOR_POLL", "250ms")
	t.Setenv("FACET_DISCOVERY_SEEDS", "10.0.0.1:7946,10.0.0.2:7946")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "facet-9", cfg.NodeID)
	assert.Equal(t, 250*time.Millisecond, cfg.SensorPoll)
	assert.Equal(t, []string{"10.0.0.1:7946", "10.0.0.2:7946"}, cfg.DiscoverySeeds)
}

func TestHistoryLength(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 50, cfg.HistoryLength())

	cfg.SensorPoll = 0
	assert.Equal(t, 1, cfg.HistoryLength())

	cfg.SensorPoll = 10 * time.Second
	assert.Equal(t, 1, cfg.HistoryLength())
}
