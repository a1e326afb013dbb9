package scanerrors

import (
	"context"
)

// Repository defines persistence for scan errors
type Repository interface {
	Save(ctx context.Context, e *ScanError) error
	ListByRun(ctx context.Context, runID string, limit int) ([]*ScanError, error)
}
