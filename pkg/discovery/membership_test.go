package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenworks/facet/pkg/logging"
)

func startNode(t *testing.T, cfg Config) *Membership {
	t.Helper()
	cfg.BindAddr = "127.0.0.1"
	m, err := New(cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Leave() })
	return m
}

func TestFallbackWithoutCluster(t *testing.T) {
	m := startNode(t, Config{
		NodeID:   "lone-sculpture",
		Role:     RoleSculpture,
		Fallback: "192.168.4.1:8266",
	})

	addr, err := m.CoordinatorAddr()
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.1:8266", addr)
}

func TestNoCoordinatorNoFallback(t *testing.T) {
	m := startNode(t, Config{
		NodeID: "lone-sculpture",
		Role:   RoleSculpture,
	})

	_, err := m.CoordinatorAddr()
	assert.Error(t, err)
}

func TestSculptureDiscoversCoordinator(t *testing.T) {
	coordinator := startNode(t, Config{
		NodeID:      "coordinator",
		Role:        RoleCoordinator,
		ServicePort: 8266,
	})

	sculpture := startNode(t, Config{
		NodeID: "sculpture-1",
		Role:   RoleSculpture,
		Seeds:  []string{coordinator.GossipAddr()},
	})

	require.Eventually(t, func() bool {
		return sculpture.Members() == 2
	}, 5*time.Second, 50*time.Millisecond, "cluster did not converge")

	addr, err := sculpture.CoordinatorAddr()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8266", addr)

	// The coordinator does not resolve itself as a peer.
	_, err = coordinator.CoordinatorAddr()
	assert.Error(t, err)
}
