package scans

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// Run is the handle of one scan. Each run owns its cancellation flag; the
// flag is only polled between files, so Cancel never interrupts a request
// already in flight. Use the context for a hard abort.
type Run struct {
	id         domain.ScanID
	onProgress domain.ProgressFunc

	started   atomic.Bool
	cancelled atomic.Bool

	mu       sync.RWMutex
	state    domain.RunState
	progress domain.Progress
}

// NewRun allocates an idle run. onProgress may be nil.
func NewRun(onProgress domain.ProgressFunc) *Run {
	return &Run{
		id:         domain.ScanID(uuid.NewString()),
		onProgress: onProgress,
		state:      domain.RunIdle,
	}
}

func (r *Run) ID() domain.ScanID { return r.id }

// Cancel asks the run to stop before its next file.
func (r *Run) Cancel() { r.cancelled.Store(true) }

func (r *Run) Cancelled() bool { return r.cancelled.Load() }

func (r *Run) State() domain.RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Run) Progress() domain.Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress
}

func (r *Run) start() error {
	if !r.started.CompareAndSwap(false, true) {
		return domain.ErrRunStarted
	}
	r.setState(domain.RunDiscovering)
	return nil
}

func (r *Run) setState(s domain.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = s
}

func (r *Run) report(fileName string, current, total int) {
	p := domain.Progress{
		FileName:   fileName,
		Current:    current,
		Total:      total,
		Percentage: percentage(current, total),
	}
	r.mu.Lock()
	r.progress = p
	r.mu.Unlock()
	if r.onProgress != nil {
		r.onProgress(p)
	}
}

func percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(current) / float64(total)))
}
