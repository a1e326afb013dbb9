package tiered

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// Store combines a durable remote tier with a local cache. Reads merge both
// tiers once, here: records are deduplicated by ID with the remote copy
// winning, then sorted newest first. A failing remote degrades to local.
type Store struct {
	remote domain.Repository
	local  domain.Repository
	logger *zap.Logger
}

// New builds a tiered store. remote may be nil.
func New(remote, local domain.Repository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{remote: remote, local: local, logger: logger}
}

// Save writes the local tier, then the remote one. A remote failure is
// logged; the result stays readable from the cache.
func (s *Store) Save(ctx context.Context, r *domain.ScanResult) error {
	if err := s.local.Save(ctx, r); err != nil {
		return err
	}
	if s.remote != nil {
		if err := s.remote.Save(ctx, r); err != nil {
			s.logger.Warn("remote save failed, kept in local cache", zap.String("scan_id", string(r.ID)), zap.Error(err))
		}
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.ScanResult, error) {
	local, err := s.local.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.remote == nil {
		return local, nil
	}
	remote, err := s.remote.List(ctx)
	if err != nil {
		s.logger.Warn("remote list failed, serving local cache", zap.Error(err))
		return local, nil
	}
	return Merge(remote, local), nil
}

func (s *Store) Get(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	if s.remote != nil {
		r, err := s.remote.Get(ctx, id)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("remote get failed, trying local cache", zap.String("scan_id", string(id)), zap.Error(err))
		}
	}
	return s.local.Get(ctx, id)
}

// LatestBySource asks both tiers and keeps the newer record, remote on a tie.
func (s *Store) LatestBySource(ctx context.Context, sourceName string, kind domain.SourceKind) (*domain.ScanResult, error) {
	local, lerr := s.local.LatestBySource(ctx, sourceName, kind)
	if lerr != nil && !errors.Is(lerr, domain.ErrNotFound) {
		return nil, lerr
	}
	if s.remote == nil {
		return local, lerr
	}

	remote, rerr := s.remote.LatestBySource(ctx, sourceName, kind)
	if rerr != nil && !errors.Is(rerr, domain.ErrNotFound) {
		s.logger.Warn("remote lookup failed, using local cache", zap.Error(rerr))
		remote, rerr = nil, domain.ErrNotFound
	}

	switch {
	case remote == nil && local == nil:
		return nil, domain.ErrNotFound
	case remote == nil:
		return local, nil
	case local == nil:
		return remote, nil
	case local.Timestamp.After(remote.Timestamp):
		return local, nil
	}
	return remote, nil
}

// Clear empties both tiers.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	if s.remote != nil {
		errs = append(errs, s.remote.Clear(ctx))
	}
	errs = append(errs, s.local.Clear(ctx))
	return errors.Join(errs...)
}

// Merge deduplicates by ID, preferring remote, and sorts newest first.
func Merge(remote, local []*domain.ScanResult) []*domain.ScanResult {
	seen := make(map[domain.ScanID]struct{}, len(remote)+len(local))
	out := make([]*domain.ScanResult, 0, len(remote)+len(local))
	for _, list := range [][]*domain.ScanResult{remote, local} {
		for _, r := range list {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}
