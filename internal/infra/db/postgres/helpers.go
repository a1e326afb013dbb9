package postgres

import (
	"encoding/json"
	"strings"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

const scanColumns = `id, scanned_at, source, source_name, status,
       critical, high, medium, low, findings_total,
       last_commit_hash, files_scanned, artifact_url, findings`

func scanResult(row rowScanner) (*domain.ScanResult, error) {
	var s domain.ScanResult
	var findings []byte
	if err := row.Scan(
		&s.ID, &s.Timestamp, &s.Source, &s.SourceName, &s.Status,
		&s.Summary.Critical, &s.Summary.High, &s.Summary.Medium, &s.Summary.Low, &s.Summary.Total,
		&s.LastCommitHash, &s.FilesScanned, &s.ArtifactURL, &findings,
	); err != nil {
		return nil, err
	}
	s.Findings = []domain.Finding{}
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &s.Findings); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func encodeFindings(f []domain.Finding) (string, error) {
	if f == nil {
		f = []domain.Finding{}
	}
	b, err := json.Marshal(f)
	return string(b), err
}
