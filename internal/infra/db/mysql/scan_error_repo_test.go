package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scanerrors"
)

func TestScanErrorRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO hipaa_scan_errors").
		WithArgs("run-1", "-", "discovery", "", "boom", at).
		WillReturnResult(sqlmock.NewResult(42, 1))

	e := &domain.ScanError{RunID: "run-1", Phase: domain.PhaseDiscovery, Message: "boom", CreatedAt: at}
	require.NoError(t, NewScanErrorRepository(db).Save(context.Background(), e))
	assert.Equal(t, int64(42), e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanErrorRepository_ListByRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM hipaa_scan_errors").
		WithArgs("run-1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "source_name", "phase", "file_name", "message", "created_at"}).
			AddRow(1, "run-1", "3 file(s)", "analysis", "a.js", "fetch a.js: boom", at))

	got, err := NewScanErrorRepository(db).ListByRun(context.Background(), "run-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.PhaseAnalysis, got[0].Phase)
	assert.Equal(t, "a.js", got[0].FileName)
	assert.Equal(t, at, got[0].CreatedAt)
}
