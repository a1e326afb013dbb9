package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/phiguard/internal/config"
	"github.com/bryanwahyu/phiguard/internal/infra/store/local"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	cfg.Storage.LocalPath = t.TempDir()
	return cfg
}

func TestNew_LocalOnly(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Scans)
	assert.IsType(t, &local.Store{}, a.Scans.Repo)
	assert.Nil(t, a.Scans.Artifacts)
	assert.Nil(t, a.Scans.Errors)
	assert.Empty(t, a.Checkers)
	assert.Equal(t, 50, a.Scans.MaxFiles)

	list, err := a.Scans.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNew_UnreachableDatabaseFallsBackToLocal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &local.Store{}, a.Scans.Repo)
	assert.NotContains(t, a.Checkers, "database")
}
