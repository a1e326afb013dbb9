package tiered

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
	"github.com/bryanwahyu/phiguard/internal/infra/store/local"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type brokenRepo struct{ err error }

func (b brokenRepo) Save(context.Context, *domain.ScanResult) error { return b.err }
func (b brokenRepo) List(context.Context) ([]*domain.ScanResult, error) {
	return nil, b.err
}
func (b brokenRepo) Get(context.Context, domain.ScanID) (*domain.ScanResult, error) {
	return nil, b.err
}
func (b brokenRepo) LatestBySource(context.Context, string, domain.SourceKind) (*domain.ScanResult, error) {
	return nil, b.err
}
func (b brokenRepo) Clear(context.Context) error { return b.err }

func res(id, name string, at time.Time, files int) *domain.ScanResult {
	return &domain.ScanResult{ID: domain.ScanID(id), SourceName: name, Source: domain.SourceGitHub, Timestamp: at, FilesScanned: files}
}

func TestMerge_RemoteWinsAndSorted(t *testing.T) {
	remote := []*domain.ScanResult{res("a", "r", t0, 1), res("b", "r", t0.Add(2*time.Hour), 1)}
	localList := []*domain.ScanResult{res("a", "r", t0, 99), res("c", "r", t0.Add(time.Hour), 1)}

	got := Merge(remote, localList)
	require.Len(t, got, 3)
	assert.Equal(t, []domain.ScanID{"b", "c", "a"}, []domain.ScanID{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, 1, got[2].FilesScanned, "remote copy wins on conflict")
}

func TestStore_SaveWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	remote, cache := local.New(t.TempDir()), local.New(t.TempDir())
	s := New(remote, cache, nil)

	require.NoError(t, s.Save(ctx, res("a", "r", t0, 1)))
	require.NoError(t, s.Save(ctx, res("a", "r", t0, 2)))

	for _, tier := range []*local.Store{remote, cache} {
		all, err := tier.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 2, all[0].FilesScanned)
	}
}

func TestStore_RemoteFailureDegradesToLocal(t *testing.T) {
	ctx := context.Background()
	cache := local.New(t.TempDir())
	s := New(brokenRepo{err: assert.AnError}, cache, nil)

	require.NoError(t, s.Save(ctx, res("a", "r", t0, 1)))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ScanID("a"), got.ID)

	latest, err := s.LatestBySource(ctx, "r", domain.SourceGitHub)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanID("a"), latest.ID)

	assert.ErrorIs(t, s.Clear(ctx), assert.AnError)
}

func TestStore_LatestBySourcePicksNewest(t *testing.T) {
	ctx := context.Background()
	remote, cache := local.New(t.TempDir()), local.New(t.TempDir())
	require.NoError(t, remote.Save(ctx, res("remote-old", "r", t0, 1)))
	require.NoError(t, cache.Save(ctx, res("local-new", "r", t0.Add(time.Minute), 1)))
	s := New(remote, cache, nil)

	got, err := s.LatestBySource(ctx, "r", domain.SourceGitHub)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanID("local-new"), got.ID)

	_, err = s.LatestBySource(ctx, "missing", domain.SourceGitHub)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetPrefersRemote(t *testing.T) {
	ctx := context.Background()
	remote, cache := local.New(t.TempDir()), local.New(t.TempDir())
	require.NoError(t, remote.Save(ctx, res("a", "r", t0, 1)))
	require.NoError(t, cache.Save(ctx, res("a", "r", t0, 7)))
	require.NoError(t, cache.Save(ctx, res("only-local", "r", t0, 3)))
	s := New(remote, cache, nil)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FilesScanned)

	got, err = s.Get(ctx, "only-local")
	require.NoError(t, err)
	assert.Equal(t, 3, got.FilesScanned)

	_, err = s.Get(ctx, "none")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_NoRemote(t *testing.T) {
	ctx := context.Background()
	s := New(nil, local.New(t.TempDir()), nil)
	require.NoError(t, s.Save(ctx, res("a", "r", t0, 1)))
	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	require.NoError(t, s.Clear(ctx))
}
