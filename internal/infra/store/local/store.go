package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// FileName of the cache inside the storage directory.
const FileName = "scans.yaml"

// maxFileSize guards against loading a runaway cache file.
const maxFileSize = 32 << 20

type document struct {
	Scans []*domain.ScanResult `yaml:"scans"`
}

// Store keeps scan results in one YAML file. It is the local cache tier and
// the only store when no database is configured.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Path() string { return filepath.Join(s.dir, FileName) }

func (s *Store) Save(ctx context.Context, r *domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, it := range doc.Scans {
		if it.ID == r.ID {
			doc.Scans[i] = r.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Scans = append(doc.Scans, r.Clone())
	}
	return s.write(doc)
}

// List returns all results, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ScanResult, 0, len(doc.Scans))
	for _, it := range doc.Scans {
		out = append(out, it.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *Store) Get(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range all {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) LatestBySource(ctx context.Context, sourceName string, kind domain.SourceKind) (*domain.ScanResult, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range all {
		if it.SourceName == sourceName && it.Source == kind {
			return it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) load() (document, error) {
	var doc document
	info, err := os.Stat(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if info.Size() > maxFileSize {
		return doc, fmt.Errorf("%s exceeds maximum size (%d bytes)", s.Path(), info.Size())
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return doc, nil
}

// write goes through a temp file so a crash never leaves half a document.
func (s *Store) write(doc document) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", FileName, err)
	}
	tmp, err := os.CreateTemp(s.dir, FileName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path())
}
