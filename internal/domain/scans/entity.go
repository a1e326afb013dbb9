package scans

import (
	"strings"
	"time"
)

// ID tipe untuk ScanResult
type ScanID string

// Severity enum, ordered CRITICAL > HIGH > MEDIUM > LOW
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// ParseSeverity normalizes a loosely formatted severity label.
// Anything outside the four known levels is rejected.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityLow:
		return SeverityLow, true
	}
	return "", false
}

// Rank returns 4 for CRITICAL down to 1 for LOW, 0 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// SourceKind enum
type SourceKind string

const (
	SourceGitHub SourceKind = "github"
	SourceUpload SourceKind = "upload"
)

// Status enum
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Finding is one reported compliance issue. Line is 1-based; zero means
// the oracle did not say.
type Finding struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Severity       Severity `json:"severity" yaml:"severity"`
	Category       string   `json:"category" yaml:"category"`
	Description    string   `json:"description" yaml:"description"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
	CodeExample    string   `json:"codeExample" yaml:"code_example"`
	File           string   `json:"file,omitempty" yaml:"file,omitempty"`
	Line           int      `json:"line,omitempty" yaml:"line,omitempty"`
	Regulation     string   `json:"regulation,omitempty" yaml:"regulation,omitempty"`
	PenaltyTier    string   `json:"penaltyTier,omitempty" yaml:"penalty_tier,omitempty"`
}

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
	Total    int `json:"total" yaml:"total"`
}

// Summarize tallies findings by severity.
func Summarize(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
	}
	c.Total = c.Critical + c.High + c.Medium + c.Low
	return c
}

// Aggregate Root: ScanResult
type ScanResult struct {
	ID             ScanID         `json:"id" yaml:"id"`
	Timestamp      time.Time      `json:"timestamp" yaml:"timestamp"`
	Source         SourceKind     `json:"source" yaml:"source"`
	SourceName     string         `json:"sourceName" yaml:"source_name"`
	Status         Status         `json:"status" yaml:"status"`
	Findings       []Finding      `json:"findings" yaml:"findings"`
	Summary        SeverityCounts `json:"summary" yaml:"summary"`
	LastCommitHash string         `json:"lastCommitHash,omitempty" yaml:"last_commit_hash,omitempty"`
	FilesScanned   int            `json:"filesScanned" yaml:"files_scanned"`
	ArtifactURL    string         `json:"artifactUrl,omitempty" yaml:"artifact_url,omitempty"`
}

// Clone returns a deep copy so callers can hand results out without sharing
// the findings slice.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Findings = append([]Finding(nil), r.Findings...)
	return &out
}
