package scans

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/phiguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// fakeHost serves a fixed tree. dirs maps a directory path ("" = root) to
// its entries; files maps a path to its content.
type fakeHost struct {
	mu       sync.Mutex
	head     string
	headErr  error
	dirs     map[string][]domain.Entry
	listErr  map[string]error
	files    map[string]string
	fetchErr map[string]error

	headCalls  int
	listCalls  []string
	fetchCalls []string
	token      string
}

func (h *fakeHost) HeadRevision(ctx context.Context, ref domain.RepoRef) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.headCalls++
	return h.head, h.headErr
}

func (h *fakeHost) ListDir(ctx context.Context, ref domain.RepoRef, path string) ([]domain.Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listCalls = append(h.listCalls, path)
	if err := h.listErr[path]; err != nil {
		return nil, err
	}
	return h.dirs[path], nil
}

func (h *fakeHost) FetchFile(ctx context.Context, e domain.Entry) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetchCalls = append(h.fetchCalls, e.Path)
	if err := h.fetchErr[e.Path]; err != nil {
		return "", err
	}
	return h.files[e.Path], nil
}

func (h *fakeHost) ForCredential(token string) domain.RepoHost {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
	return h
}

func file(path string) domain.Entry {
	return domain.Entry{Name: baseName(path), Path: path, Type: domain.EntryFile, DownloadURL: "raw://" + path}
}

func dir(path string) domain.Entry {
	return domain.Entry{Name: baseName(path), Path: path, Type: domain.EntryDir}
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// fakeAnalyzer returns one LOW finding per file unless fn is set.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
	fn    func(code, fileName string) ([]domain.Finding, error)
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, code, fileName string) ([]domain.Finding, error) {
	a.mu.Lock()
	a.calls = append(a.calls, fileName)
	fn := a.fn
	a.mu.Unlock()
	if fn != nil {
		return fn(code, fileName)
	}
	return []domain.Finding{{ID: "f-" + fileName, Title: "t", Severity: domain.SeverityLow}}, nil
}

type memRepo struct {
	mu        sync.Mutex
	items     map[domain.ScanID]*domain.ScanResult
	saveErr   error
	latestErr error
	saves     int
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[domain.ScanID]*domain.ScanResult{}}
}

func (r *memRepo) Save(ctx context.Context, res *domain.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.items[res.ID] = res.Clone()
	return nil
}

func (r *memRepo) List(ctx context.Context) ([]*domain.ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ScanResult, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *memRepo) Get(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return it.Clone(), nil
}

func (r *memRepo) LatestBySource(ctx context.Context, sourceName string, kind domain.SourceKind) (*domain.ScanResult, error) {
	if r.latestErr != nil {
		return nil, r.latestErr
	}
	all, _ := r.List(ctx)
	for _, it := range all {
		if it.SourceName == sourceName && it.Source == kind {
			return it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = map[domain.ScanID]*domain.ScanResult{}
	return nil
}

type memErrors struct {
	mu    sync.Mutex
	items []*scanerrors.ScanError
}

func (m *memErrors) Save(ctx context.Context, e *scanerrors.ScanError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, e)
	return nil
}

func (m *memErrors) ListByRun(ctx context.Context, runID string, limit int) ([]*scanerrors.ScanError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*scanerrors.ScanError
	for _, e := range m.items {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeArtifacts struct {
	keys []string
	err  error
}

func (f *fakeArtifacts) PutJSON(ctx context.Context, key string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "http://minio.local/bucket/" + key, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var errBoom = errors.New("boom")
