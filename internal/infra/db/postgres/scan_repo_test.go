package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/phiguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

var columns = []string{"id", "scanned_at", "source", "source_name", "status",
	"critical", "high", "medium", "low", "findings_total",
	"last_commit_hash", "files_scanned", "artifact_url", "findings"}

func TestScanRepository_SaveUsesOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("u-1", at, "upload", "2 file(s)", "COMPLETED", 0, 0, 0, 0, 0, "", 2, "", "[]").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewScanRepository(db).Save(context.Background(), &domain.ScanResult{
		ID: "u-1", Timestamp: at, Source: domain.SourceUpload, SourceName: "2 file(s)",
		Status: domain.StatusCompleted, FilesScanned: 2,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepository_GetAndLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(columns).AddRow("g-1", at, "github", "https://github.com/acme/billing", "COMPLETED",
			1, 0, 0, 0, 1, "abc", 4, "http://minio/reports/github/g-1.json",
			`[{"id":"f","title":"t","severity":"CRITICAL","category":"c","description":"d","recommendation":"r","codeExample":""}]`)
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id=$1")).WithArgs("g-1").WillReturnRows(row())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE source_name=$1 AND source=$2")).
		WithArgs("https://github.com/acme/billing", "github").WillReturnRows(row())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id=$1")).WithArgs("nope").WillReturnRows(sqlmock.NewRows(columns))

	repo := NewScanRepository(db)
	got, err := repo.Get(context.Background(), "g-1")
	require.NoError(t, err)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, domain.SeverityCritical, got.Findings[0].Severity)
	assert.Equal(t, 1, got.Summary.Critical)

	latest, err := repo.LatestBySource(context.Background(), "https://github.com/acme/billing", domain.SourceGitHub)
	require.NoError(t, err)
	assert.Equal(t, "abc", latest.LastCommitHash)

	_, err = repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepository_ListAndClear(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("ORDER BY scanned_at DESC").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec("DELETE FROM hipaa_scans").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewScanRepository(db)
	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.NoError(t, repo.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanErrorRepository_SaveReturnsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO hipaa_scan_errors").
		WithArgs("run-9", "https://github.com/acme/billing", "revision", "", "-", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	e := &scanerrors.ScanError{RunID: "run-9", SourceName: "https://github.com/acme/billing", Phase: scanerrors.PhaseRevision}
	require.NoError(t, NewScanErrorRepository(db).Save(context.Background(), e))
	assert.Equal(t, int64(7), e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:p%40ss@db:5432/phiguard?sslmode=disable", DSN("app", "p@ss", "db", 5432, "phiguard", ""))
	assert.Contains(t, DSN("app", "x", "db", 5432, "phiguard", "require"), "sslmode=require")
}
