package base

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/recruitsync/harvest-connector/pkg/metrics"
	"go.uber.org/zap"
)

// ProgressReporter tracks and periodically logs extraction progress.
type ProgressReporter struct {
	logger           *zap.Logger
	metricsCollector *metrics.Collector

	totalRecords     int64
	processedRecords int64
	startTime        time.Time
	reportInterval   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(logger *zap.Logger, collector *metrics.Collector) *ProgressReporter {
	return &ProgressReporter{
		logger:           logger,
		metricsCollector: collector,
		startTime:        time.Now(),
		reportInterval:   10 * time.Second,
		stopCh:           make(chan struct{}),
	}
}

// Start begins periodic progress reporting
func (pr *ProgressReporter) Start() {
	pr.wg.Add(1)
	go func() {
		defer pr.wg.Done()
		ticker := time.NewTicker(pr.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pr.stopCh:
				return
			case <-ticker.C:
				pr.report()
			}
		}
	}()
}

// Stop stops progress reporting and emits a final report
func (pr *ProgressReporter) Stop() {
	pr.stopOnce.Do(func() {
		close(pr.stopCh)
	})
	pr.wg.Wait()
	pr.report()
}

// ReportProgress updates the progress counters
func (pr *ProgressReporter) ReportProgress(processed, total int64) {
	atomic.StoreInt64(&pr.processedRecords, processed)
	if total > 0 {
		atomic.StoreInt64(&pr.totalRecords, total)
	}
}

// IncrementProcessed increments the processed count
func (pr *ProgressReporter) IncrementProcessed(count int64) {
	atomic.AddInt64(&pr.processedRecords, count)
}

// Processed returns the current processed count
func (pr *ProgressReporter) Processed() int64 {
	return atomic.LoadInt64(&pr.processedRecords)
}

// report logs the current progress and throughput
func (pr *ProgressReporter) report() {
	processed := atomic.LoadInt64(&pr.processedRecords)
	total := atomic.LoadInt64(&pr.totalRecords)
	elapsed := time.Since(pr.startTime)

	throughput := float64(0)
	if elapsed > 0 {
		throughput = float64(processed) / elapsed.Seconds()
	}

	fields := []zap.Field{
		zap.Int64("processed", processed),
		zap.Duration("elapsed", elapsed),
		zap.Float64("records_per_second", throughput),
	}
	if total > 0 {
		fields = append(fields, zap.Int64("total", total))
	}

	pr.logger.Info("extraction progress", fields...)

	if pr.metricsCollector != nil {
		pr.metricsCollector.Record("processed_records", processed)
		pr.metricsCollector.Record("throughput", throughput)
	}
}
