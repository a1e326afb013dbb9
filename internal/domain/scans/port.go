package scans

import "context"

// Repository port (interface untuk persistence hasil scan)
type Repository interface {
	// Save upserts by ID.
	Save(ctx context.Context, r *ScanResult) error
	// List returns every result, newest first.
	List(ctx context.Context) ([]*ScanResult, error)
	// Get returns ErrNotFound when the ID is unknown.
	Get(ctx context.Context, id ScanID) (*ScanResult, error)
	// LatestBySource returns the newest result for a source or ErrNotFound.
	LatestBySource(ctx context.Context, sourceName string, kind SourceKind) (*ScanResult, error)
	Clear(ctx context.Context) error
}

// EntryType of a hosted tree entry
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// Entry is one item of a directory listing. DownloadURL is the content
// locator for files.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Type        EntryType `json:"type"`
	DownloadURL string    `json:"download_url"`
}

// RepoHost port (hosting provider content API)
type RepoHost interface {
	HeadRevision(ctx context.Context, ref RepoRef) (string, error)
	ListDir(ctx context.Context, ref RepoRef, path string) ([]Entry, error)
	FetchFile(ctx context.Context, e Entry) (string, error)
}

// HostProvider hands out a RepoHost bound to an optional credential.
type HostProvider interface {
	ForCredential(token string) RepoHost
}

// Analyzer port: the finding oracle as seen by the orchestrator. Oracle
// failures are expected to come back as findings, not errors.
type Analyzer interface {
	Analyze(ctx context.Context, code, fileName string) ([]Finding, error)
}

// ArtifactStore port (penyimpanan arsip laporan)
type ArtifactStore interface {
	PutJSON(ctx context.Context, key string, body []byte) (string, error)
}

// Progress of one run.
type Progress struct {
	FileName   string `json:"fileName"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// ProgressFunc receives one call per file, in order.
type ProgressFunc func(Progress)
