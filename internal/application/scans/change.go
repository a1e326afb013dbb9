package scans

import (
	"context"
	"errors"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// ChangeDetector decides whether a repository state was already scanned.
type ChangeDetector struct {
	Repo domain.Repository
}

// LatestRevision asks the host for the head commit of the default branch.
func (c ChangeDetector) LatestRevision(ctx context.Context, host domain.RepoHost, ref domain.RepoRef) (string, error) {
	return host.HeadRevision(ctx, ref)
}

// ShouldSkip returns the newest stored GitHub result for sourceName when it
// was taken at candidate, nil otherwise.
func (c ChangeDetector) ShouldSkip(ctx context.Context, sourceName, candidate string) (*domain.ScanResult, error) {
	if candidate == "" {
		return nil, nil
	}
	prev, err := c.Repo.LatestBySource(ctx, sourceName, domain.SourceGitHub)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prev == nil || prev.LastCommitHash != candidate {
		return nil, nil
	}
	return prev, nil
}
