package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Database.Driver)
	assert.False(t, cfg.DatabaseEnabled())
	assert.False(t, cfg.MinioEnabled())
	assert.Equal(t, 50, cfg.Scan.MaxFiles)
	assert.True(t, cfg.Scan.Incremental)
	assert.Equal(t, 30*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  api_keys: [k1, k2]
database:
  driver: postgres
  host: db
  port: 5432
minio:
  endpoint: minio:9000
  bucket: reports
github:
  timeout: 5s
  requests_per_second: 2.5
scan:
  max_files: 10
  exclude:
    - "vendor/"
    - "*.min.js"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.DatabaseEnabled())
	assert.True(t, cfg.MinioEnabled())
	assert.Equal(t, 5*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 2.5, cfg.GitHub.RequestsPerSecond)
	assert.Equal(t, 10, cfg.Scan.MaxFiles)
	assert.Equal(t, []string{"vendor/", "*.min.js"}, cfg.Scan.Exclude)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PHIGUARD_AI_API_KEY", "sk-env")
	t.Setenv("PHIGUARD_SCAN_MAX_FILES", "7")
	t.Setenv("PHIGUARD_GITHUB_TOKEN", "ghp_env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
	assert.Equal(t, 7, cfg.Scan.MaxFiles)
	assert.Equal(t, "ghp_env", cfg.GitHub.Token)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "database.driver")
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yaml", Path())
	t.Setenv("CONFIG_PATH", "/etc/phiguard.yaml")
	assert.Equal(t, "/etc/phiguard.yaml", Path())
}
