package middleware

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

// Metrics stores request and analysis counters. It is the lifecycle's
// reviews.Recorder.
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64

	AnalysesTotal     atomic.Uint64
	AnalysesRunning   atomic.Int64
	AnalysesCompleted atomic.Uint64
	AnalysesFailed    atomic.Uint64

	StartTime time.Time
}

var _ reviews.Recorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) AnalysisStarted() {
	m.AnalysesTotal.Add(1)
	m.AnalysesRunning.Add(1)
}

func (m *Metrics) AnalysisFinished(status reviews.Status) {
	m.AnalysesRunning.Add(-1)
	switch status {
	case reviews.StatusCompleted:
		m.AnalysesCompleted.Add(1)
	case reviews.StatusError:
		m.AnalysesFailed.Add(1)
	}
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"analyses_total":       m.AnalysesTotal.Load(),
		"analyses_running":     m.AnalysesRunning.Load(),
		"analyses_completed":   m.AnalysesCompleted.Load(),
		"analyses_failed":      m.AnalysesFailed.Load(),
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, m.Snapshot())
}
