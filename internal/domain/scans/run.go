package scans

// RunState of one scan run
type RunState string

const (
	RunIdle        RunState = "idle"
	RunDiscovering RunState = "discovering"
	RunAnalyzing   RunState = "analyzing"
	RunAggregating RunState = "aggregating"
	RunCompleted   RunState = "completed"
	RunCancelled   RunState = "cancelled"
	RunFailed      RunState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunCancelled || s == RunFailed
}

// UploadedFile untuk scan upload lokal
type UploadedFile struct {
	Name    string
	Content string
}
