package httpserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appscans "github.com/bryanwahyu/phiguard/internal/application/scans"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
	"github.com/bryanwahyu/phiguard/internal/middleware"
)

// DefaultMaxFinishedRuns bounds how many finished runs stay queryable.
const DefaultMaxFinishedRuns = 200

var errRunFinished = errors.New("run already finished")

// RunView is the polling snapshot of a background run.
type RunView struct {
	ID         domain.ScanID      `json:"id"`
	Kind       domain.SourceKind  `json:"kind"`
	Source     string             `json:"source"`
	State      domain.RunState    `json:"state"`
	Progress   domain.Progress    `json:"progress"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
	Result     *domain.ScanResult `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ExecFunc drives one run to its end.
type ExecFunc func(ctx context.Context, run *appscans.Run) (*domain.ScanResult, error)

type runEntry struct {
	run     *appscans.Run
	kind    domain.SourceKind
	source  string
	started time.Time

	mu       sync.Mutex
	finished time.Time
	result   *domain.ScanResult
	err      error
}

func (e *runEntry) view() RunView {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := RunView{
		ID:        e.run.ID(),
		Kind:      e.kind,
		Source:    e.source,
		State:     e.run.State(),
		Progress:  e.run.Progress(),
		StartedAt: e.started,
		Result:    e.result.Clone(),
	}
	if !e.finished.IsZero() {
		t := e.finished
		v.FinishedAt = &t
	}
	if e.err != nil {
		v.Error = e.err.Error()
	}
	return v
}

// Registry tracks background runs started over HTTP. Every run gets its own
// Run handle, so cancelling one never touches another. Runs inherit the
// registry context: cancelling it aborts all of them.
type Registry struct {
	base        context.Context
	logger      *zap.Logger
	maxFinished int

	mu       sync.Mutex
	runs     map[domain.ScanID]*runEntry
	finished []domain.ScanID
	wg       sync.WaitGroup
}

func NewRegistry(ctx context.Context, maxFinished int, logger *zap.Logger) *Registry {
	if maxFinished <= 0 {
		maxFinished = DefaultMaxFinishedRuns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		base:        ctx,
		logger:      logger,
		maxFinished: maxFinished,
		runs:        make(map[domain.ScanID]*runEntry),
	}
}

// Start launches exec in the background and returns at once.
func (r *Registry) Start(kind domain.SourceKind, source string, exec ExecFunc) RunView {
	e := &runEntry{
		run:     appscans.NewRun(nil),
		kind:    kind,
		source:  source,
		started: time.Now(),
	}
	id := e.run.ID()

	r.mu.Lock()
	r.runs[id] = e
	r.mu.Unlock()

	middleware.ScanStarted()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		res, err := exec(r.base, e.run)

		e.mu.Lock()
		e.finished = time.Now()
		e.result, e.err = res, err
		e.mu.Unlock()

		outcome := outcomeOf(e.run.State())
		middleware.ScanFinished(outcome)
		r.logger.Debug("background run finished", zap.String("run_id", string(id)), zap.String("outcome", outcome))
		r.retire(id)
	}()
	return e.view()
}

func (r *Registry) Get(id domain.ScanID) (RunView, bool) {
	r.mu.Lock()
	e, ok := r.runs[id]
	r.mu.Unlock()
	if !ok {
		return RunView{}, false
	}
	return e.view(), true
}

// Cancel flags the run; it stops before its next file.
func (r *Registry) Cancel(id domain.ScanID) (RunView, error) {
	r.mu.Lock()
	e, ok := r.runs[id]
	r.mu.Unlock()
	if !ok {
		return RunView{}, errRunNotFound
	}
	if e.run.State().Terminal() {
		return e.view(), errRunFinished
	}
	e.run.Cancel()
	return e.view(), nil
}

// Wait blocks until every started run has returned.
func (r *Registry) Wait() { r.wg.Wait() }

func (r *Registry) retire(id domain.ScanID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, id)
	for len(r.finished) > r.maxFinished {
		delete(r.runs, r.finished[0])
		r.finished = r.finished[1:]
	}
}

func outcomeOf(s domain.RunState) string {
	switch s {
	case domain.RunCompleted:
		return "completed"
	case domain.RunCancelled:
		return "cancelled"
	}
	return "failed"
}
