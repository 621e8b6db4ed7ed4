// Package metrics records operational metrics for pipeline runs behind a
// pluggable Backend.
//
// The default backend is a no-op, so instrumentation calls are always safe.
// Concrete systems (Prometheus Pushgateway, Datadog) live in subpackages and
// are installed once at process start with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by this package.
const (
	StageTotal           = "pipeline_stage_total"
	StageDurationSeconds = "pipeline_stage_duration_seconds"
	RowsTotal            = "pipeline_rows_total"
	ObjectsTotal         = "pipeline_objects_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStage counts one stage execution and observes its duration.
func RecordStage(pipeline, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"pipeline": pipeline,
		"stage":    stage,
		"status":   status,
	}
	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind for a stage. Typical kinds are
// "read", "upserted" and "loaded".
func RecordRows(pipeline, stage, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"pipeline": pipeline,
		"stage":    stage,
		"kind":     kind,
	})
}

// RecordObjects counts objects written to the object store by a stage.
func RecordObjects(pipeline, stage string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(ObjectsTotal, float64(delta), Labels{
		"pipeline": pipeline,
		"stage":    stage,
	})
}
