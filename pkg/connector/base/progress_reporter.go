package base

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultReportEvery = 10000

// ProgressReporter logs row progress every N rows and once at the end.
type ProgressReporter struct {
	logger     *zap.Logger
	every      int64
	processed  int64
	startTime  time.Time
	lastLogged int64
}

// NewProgressReporter creates a reporter logging every n rows (10000 when n <= 0).
func NewProgressReporter(l *zap.Logger, every int64) *ProgressReporter {
	if every <= 0 {
		every = defaultReportEvery
	}
	return &ProgressReporter{logger: l, every: every, startTime: time.Now()}
}

// Reset starts a new run.
func (pr *ProgressReporter) Reset() {
	atomic.StoreInt64(&pr.processed, 0)
	atomic.StoreInt64(&pr.lastLogged, 0)
	pr.startTime = time.Now()
}

// IncrementProcessed adds n rows and logs when a reporting boundary is crossed.
func (pr *ProgressReporter) IncrementProcessed(n int64) {
	total := atomic.AddInt64(&pr.processed, n)
	last := atomic.LoadInt64(&pr.lastLogged)
	if total-last >= pr.every && atomic.CompareAndSwapInt64(&pr.lastLogged, last, total) {
		pr.logger.Info("progress",
			zap.Int64("rows", total),
			zap.Float64("rows_per_second", pr.rate(total)))
	}
}

// Processed returns the rows counted so far.
func (pr *ProgressReporter) Processed() int64 {
	return atomic.LoadInt64(&pr.processed)
}

// Finish logs the final count.
func (pr *ProgressReporter) Finish() {
	total := pr.Processed()
	pr.logger.Info("run complete",
		zap.Int64("rows", total),
		zap.Duration("duration", time.Since(pr.startTime)),
		zap.Float64("rows_per_second", pr.rate(total)))
}

func (pr *ProgressReporter) rate(total int64) float64 {
	elapsed := time.Since(pr.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total) / elapsed
}
