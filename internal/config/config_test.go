package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/qeem-client/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New()
	assert.Equal(t, "DEV", c.GetEnv())
	assert.Equal(t, "http://localhost:8000", c.GetBaseURL())
	assert.Equal(t, 15*time.Second, c.GetRefreshTimeout())
	assert.Equal(t, 5*time.Minute, c.GetCacheTTL())
	assert.Equal(t, config.StoreSQLite, c.GetStoreType())
	assert.Equal(t, ":8000", c.GetDevAPIPort())
	assert.Equal(t, 32, c.GetRefreshTokenLength())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qeem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.qeem.example
session:
  store: memory
  refresh_timeout: 3s
cache:
  size: 10
`), 0o600))

	t.Setenv("QEEM_LOGGING_LEVEL", "debug")

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.qeem.example", c.GetBaseURL())
	assert.Equal(t, config.StoreMemory, c.GetStoreType())
	assert.Equal(t, 3*time.Second, c.GetRefreshTimeout())
	assert.Equal(t, 10, c.GetCacheSize())
	assert.Equal(t, "debug", c.GetLogLevel())
}

func TestLoad_InvalidStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qeem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  store: floppy\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func TestGetEnv(t *testing.T) {
	t.Setenv("QEEM_TEST_VALUE", "")
	assert.Equal(t, "fallback", config.GetEnv("QEEM_TEST_VALUE", "fallback"))
	t.Setenv("QEEM_TEST_VALUE", "set")
	assert.Equal(t, "set", config.GetEnv("QEEM_TEST_VALUE", "fallback"))
}
