package local

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func result(id string, at time.Time, source string) *domain.ScanResult {
	findings := []domain.Finding{{ID: id + "-f", Title: "t", Severity: domain.SeverityMedium, Line: 2}}
	return &domain.ScanResult{
		ID: domain.ScanID(id), Timestamp: at, Source: domain.SourceGitHub, SourceName: source,
		Status: domain.StatusCompleted, Findings: findings, Summary: domain.Summarize(findings),
		LastCommitHash: "sha-" + id, FilesScanned: 1,
	}
}

func TestStore_EmptyWhenMissing(t *testing.T) {
	s := New(t.TempDir())
	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.Get(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveIsUpsert(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	r := result("a", t0, "repo")

	require.NoError(t, s.Save(ctx, r))
	r.FilesScanned = 9
	require.NoError(t, s.Save(ctx, r))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 9, all[0].FilesScanned)
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := result("a", t0, "repo")
	require.NoError(t, New(dir).Save(ctx, r))

	got, err := New(dir).Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, r.Findings, got.Findings)
	assert.True(t, r.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, r.Summary, got.Summary)
	assert.Equal(t, r.LastCommitHash, got.LastCommitHash)
}

func TestStore_ListNewestFirstAndLatestBySource(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, result("old", t0, "repo")))
	require.NoError(t, s.Save(ctx, result("new", t0.Add(time.Hour), "repo")))
	require.NoError(t, s.Save(ctx, result("other", t0.Add(2*time.Hour), "other")))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.ScanID("other"), all[0].ID)
	assert.Equal(t, domain.ScanID("new"), all[1].ID)

	latest, err := s.LatestBySource(ctx, "repo", domain.SourceGitHub)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanID("new"), latest.ID)

	_, err = s.LatestBySource(ctx, "repo", domain.SourceUpload)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Clear(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Save(ctx, result("a", t0, "repo")))
	require.NoError(t, s.Clear(ctx))

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/"+FileName, []byte("scans: [::"), 0o644))

	_, err := New(dir).List(context.Background())
	assert.Error(t, err)
}
