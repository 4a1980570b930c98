// Package metrics exposes Prometheus metrics for extraction and loading runs.
//
// # Basic Usage
//
//	// Count a committed row
//	metrics.RowsProcessed.WithLabelValues("orders", metrics.OutcomeCommitted).Inc()
//
//	// Time an inference
//	timer := metrics.NewTimer("infer")
//	result, err := inferrer.Infer(ctx, coll, opts)
//	metrics.InferenceDuration.WithLabelValues("orders").Observe(timer.Stop().Seconds())
//
// All metrics are registered with the default registry on package load.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes used as the "outcome" label.
const (
	OutcomeCommitted  = "committed"
	OutcomeRedirected = "redirected"
	OutcomeFailed     = "failed"
)

var (
	// RowsProcessed counts documents turned into rows, by collection and outcome.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongobridge_rows_processed_total",
			Help: "Total number of documents processed into rows",
		},
		[]string{"collection", "outcome"},
	)

	// ConversionWarnings counts non-string values coerced into character columns.
	ConversionWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongobridge_conversion_warnings_total",
			Help: "Total number of lossy coercions into character columns",
		},
		[]string{"column"},
	)

	// ColumnErrors counts column failures by kind (conversion/truncation) and disposition.
	ColumnErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongobridge_column_errors_total",
			Help: "Total number of column conversion and truncation failures",
		},
		[]string{"column", "kind", "disposition"},
	)

	// DocumentsInserted counts documents written to a collection.
	DocumentsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mongobridge_documents_inserted_total",
			Help: "Total number of documents inserted",
		},
		[]string{"collection"},
	)

	// InsertBatches tracks the distribution of insert batch sizes.
	InsertBatches = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongobridge_insert_batch_size",
			Help:    "Number of documents per insert batch",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"collection"},
	)

	// InferenceDuration tracks how long schema inference takes, in seconds.
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mongobridge_inference_duration_seconds",
			Help:    "Schema inference duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	// ActiveRuns tracks extract and load runs in progress.
	ActiveRuns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mongobridge_active_runs",
			Help: "Number of runs in progress",
		},
		[]string{"kind"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's name.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks rows per second between resets. Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
}

// NewThroughputTracker creates a tracker starting now.
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{lastReset: time.Now()}
}

// Increment adds n to the current window.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	t.count += n
	t.mu.Unlock()
}

// GetAndReset returns the rate of the current window and starts a new one.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(t.count) / elapsed
	}
	t.count = 0
	t.lastReset = time.Now()
	return rate
}
