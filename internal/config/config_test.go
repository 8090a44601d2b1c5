package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "star.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenFieldsAreUnset(t *testing.T) {
	path := writeYAML(t, "star:\n  constellation: alpha\n  name: core\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Space", cfg.Star.Kind)
	assert.Equal(t, "0.0.0.0:7890", cfg.Lane.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.Topology.WrangleInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadReadsFileValues(t *testing.T) {
	path := writeYAML(t, `
star:
  constellation: alpha
  name: edge
  index: 2
  kind: Mechtron
  is_forwarder: true
lane:
  listen_addr: "0.0.0.0:9999"
topology:
  wrangle_kinds:
    - Space
    - Mechtron
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha", cfg.Star.Constellation)
	assert.Equal(t, "edge", cfg.Star.Name)
	assert.Equal(t, uint16(2), cfg.Star.Index)
	assert.Equal(t, "Mechtron", cfg.Star.Kind)
	assert.True(t, cfg.Star.IsForwarder)
	assert.Equal(t, "0.0.0.0:9999", cfg.Lane.ListenAddr)
	assert.Equal(t, []string{"Space", "Mechtron"}, cfg.Topology.WrangleKinds)
}

func TestLoadParsesPeerList(t *testing.T) {
	path := writeYAML(t, `
star:
  constellation: alpha
  name: edge
lane:
  peers:
    - constellation: alpha
      name: core
      index: 0
      addr: "10.0.0.1:7890"
      forwarder: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Lane.Peers, 1)
	assert.Equal(t, "core", cfg.Lane.Peers[0].Name)
	assert.Equal(t, "10.0.0.1:7890", cfg.Lane.Peers[0].Addr)
	assert.True(t, cfg.Lane.Peers[0].Forwarder)
}

func TestLoadFailsWithoutStarIdentity(t *testing.T) {
	path := writeYAML(t, "lane:\n  listen_addr: \"0.0.0.0:7890\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvironmentOverridesFileValue(t *testing.T) {
	path := writeYAML(t, "star:\n  constellation: alpha\n  name: core\n")
	t.Setenv("STARLANE_STAR_NAME", "overridden")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "overridden", cfg.Star.Name)
}
