// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the fraud pipeline.
//
// Callers record step timings and row counts through package-level helpers.
// The installed Backend defaults to a no-op so instrumentation is always safe
// to call, and concrete metric systems live in subpackages (prompush,
// datadog) so the core never imports them.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal    = "fraudprep_step_total"
	StepDuration = "fraudprep_step_duration_seconds"
	RowsTotal    = "fraudprep_rows_total"
	BatchesTotal = "fraudprep_batches_total"
)

// Row kinds used with RecordRow.
const (
	RowsRead      = "read"
	RowsMatched   = "matched"
	RowsUnmatched = "unmatched"
	RowsDropped   = "dropped"
	RowsFilled    = "filled"
	RowsDuplicate = "duplicate"
	RowsWritten   = "written"
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

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend and returns the one it replaced.
// Passing nil keeps the existing backend.
func SetBackend(b Backend) (prev Backend) {
	prev = backend
	if b != nil {
		backend = b
	}
	return prev
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a pipeline stage and records its
// latency, labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments the row counter for the given job and kind (one of
// the Rows* constants). Non-positive deltas are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the count of database batches flushed.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
