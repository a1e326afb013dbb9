package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64
	ScansTotal         atomic.Uint64
	ScansRunning       atomic.Int64
	ScansCompleted     atomic.Uint64
	ScansFailed        atomic.Uint64
	ScansCancelled     atomic.Uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{StartTime: time.Now()}

// ScanStarted counts a new background run.
func ScanStarted() {
	globalMetrics.ScansTotal.Add(1)
	globalMetrics.ScansRunning.Add(1)
}

// ScanFinished counts the terminal outcome of a run: "completed", "failed"
// or "cancelled".
func ScanFinished(outcome string) {
	globalMetrics.ScansRunning.Add(-1)
	switch outcome {
	case "completed":
		globalMetrics.ScansCompleted.Add(1)
	case "cancelled":
		globalMetrics.ScansCancelled.Add(1)
	default:
		globalMetrics.ScansFailed.Add(1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"requests_total":       globalMetrics.RequestsTotal.Load(),
		"requests_in_progress": globalMetrics.RequestsInProgress.Load(),
		"requests_success":     globalMetrics.RequestsSuccess.Load(),
		"requests_failed":      globalMetrics.RequestsFailed.Load(),
		"scans_total":          globalMetrics.ScansTotal.Load(),
		"scans_running":        globalMetrics.ScansRunning.Load(),
		"scans_completed":      globalMetrics.ScansCompleted.Load(),
		"scans_failed":         globalMetrics.ScansFailed.Load(),
		"scans_cancelled":      globalMetrics.ScansCancelled.Load(),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalMetrics.RequestsTotal.Add(1)
		globalMetrics.RequestsInProgress.Add(1)
		defer globalMetrics.RequestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			globalMetrics.RequestsSuccess.Add(1)
		} else {
			globalMetrics.RequestsFailed.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
