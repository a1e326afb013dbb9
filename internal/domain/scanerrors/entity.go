package scanerrors

import "time"

// Phase tells where a run failed.
type Phase string

const (
	PhaseInput     Phase = "input"
	PhaseRevision  Phase = "revision"
	PhaseDiscovery Phase = "discovery"
	PhaseAnalysis  Phase = "analysis"
	PhasePersist   Phase = "persist"
)

// ScanError represents a persisted failed-run entry. Cancelled runs are not
// recorded.
type ScanError struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	SourceName string    `json:"source_name,omitempty"`
	Phase      Phase     `json:"phase,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
