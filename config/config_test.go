package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pool:
  total_physical_qubits: 9000
admission:
  addr: "0.0.0.0:9000"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 9000, cfg.Pool.TotalPhysicalQubits)
	assert.Equal(t, "0.0.0.0:9000", cfg.Admission.Addr)
	// Fields the file never mentioned keep Default()'s values.
	assert.EqualValues(t, Default().DefaultQuota, cfg.DefaultQuota)
	assert.Equal(t, Default().Pool.TemplateCacheBytes, cfg.Pool.TemplateCacheBytes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestRequestTimeoutOrDefault(t *testing.T) {
	var c Config
	assert.Equal(t, 10*time.Second, c.RequestTimeoutOrDefault())

	c.Admission.RequestTimeout = 5
	assert.EqualValues(t, 5, c.RequestTimeoutOrDefault())
}
