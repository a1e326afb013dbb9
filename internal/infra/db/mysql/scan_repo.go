package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Save insert/update ScanResult record
func (r *ScanRepository) Save(ctx context.Context, s *domain.ScanResult) error {
	const q = `
INSERT INTO hipaa_scans
(id, scanned_at, source, source_name, status,
 critical, high, medium, low, findings_total,
 last_commit_hash, files_scanned, artifact_url, findings)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 scanned_at=VALUES(scanned_at), status=VALUES(status),
 critical=VALUES(critical), high=VALUES(high), medium=VALUES(medium), low=VALUES(low),
 findings_total=VALUES(findings_total),
 last_commit_hash=VALUES(last_commit_hash), files_scanned=VALUES(files_scanned),
 artifact_url=VALUES(artifact_url), findings=VALUES(findings);
`
	findings, err := encodeFindings(s.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	scanned := s.Timestamp
	if scanned.IsZero() {
		scanned = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, q,
		s.ID, scanned, string(s.Source), stringOrDash(s.SourceName), stringOrDash(string(s.Status)),
		s.Summary.Critical, s.Summary.High, s.Summary.Medium, s.Summary.Low, s.Summary.Total,
		s.LastCommitHash, s.FilesScanned, s.ArtifactURL, findings,
	)
	return err
}

// List semua hasil scan, terbaru dulu
func (r *ScanRepository) List(ctx context.Context) ([]*domain.ScanResult, error) {
	q := `SELECT ` + scanColumns + ` FROM hipaa_scans ORDER BY scanned_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	out := []*domain.ScanResult{}
	for rows.Next() {
		s, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	q := `SELECT ` + scanColumns + ` FROM hipaa_scans WHERE id=? LIMIT 1;`
	s, err := scanResult(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

// LatestBySource returns the newest result for a source name and kind.
func (r *ScanRepository) LatestBySource(ctx context.Context, sourceName string, kind domain.SourceKind) (*domain.ScanResult, error) {
	q := `SELECT ` + scanColumns + ` FROM hipaa_scans
WHERE source_name=? AND source=? ORDER BY scanned_at DESC LIMIT 1;`
	s, err := scanResult(r.db.QueryRowContext(ctx, q, sourceName, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *ScanRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hipaa_scans;`)
	return err
}

// Ping dipakai health check
func (r *ScanRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
