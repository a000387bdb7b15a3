package vcslog

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/vcslog/pathindex"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    indexCounter     prometheus.Counter
//	    historyHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordIndex(changes int, duration time.Duration, err error) {
//	    p.indexCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordIndex is called after each IndexCommit.
	// changes is the number of path changes in the record.
	RecordIndex(changes int, duration time.Duration, err error)

	// RecordHistory is called after each History query.
	RecordHistory(results int, duration time.Duration, err error)

	// RecordFindRename is called after each FindRename query.
	RecordFindRename(found bool, duration time.Duration, err error)

	// RecordFlush is called after each Flush.
	RecordFlush(duration time.Duration, err error)

	// RecordIngestFailure is called for every failure reported to the
	// error handler while indexing.
	RecordIngestFailure(source pathindex.Source)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIndex(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordHistory(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordFindRename(bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)            {}
func (NoopMetricsCollector) RecordIngestFailure(pathindex.Source)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IndexCount            atomic.Int64
	IndexErrors           atomic.Int64
	IndexChanges          atomic.Int64
	IndexTotalNanos       atomic.Int64
	HistoryCount          atomic.Int64
	HistoryErrors         atomic.Int64
	HistoryResults        atomic.Int64
	HistoryTotalNanos     atomic.Int64
	FindRenameCount       atomic.Int64
	FindRenameHits        atomic.Int64
	FindRenameErrors      atomic.Int64
	FlushCount            atomic.Int64
	FlushErrors           atomic.Int64
	IngestIndexFailures   atomic.Int64
	IngestStorageFailures atomic.Int64
}

// RecordIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndex(changes int, duration time.Duration, err error) {
	b.IndexCount.Add(1)
	b.IndexTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IndexErrors.Add(1)
		return
	}
	b.IndexChanges.Add(int64(changes))
}

// RecordHistory implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHistory(results int, duration time.Duration, err error) {
	b.HistoryCount.Add(1)
	b.HistoryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.HistoryErrors.Add(1)
		return
	}
	b.HistoryResults.Add(int64(results))
}

// RecordFindRename implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFindRename(found bool, _ time.Duration, err error) {
	b.FindRenameCount.Add(1)
	switch {
	case err != nil:
		b.FindRenameErrors.Add(1)
	case found:
		b.FindRenameHits.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(_ time.Duration, err error) {
	b.FlushCount.Add(1)
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordIngestFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngestFailure(source pathindex.Source) {
	if source == pathindex.SourceStorage {
		b.IngestStorageFailures.Add(1)
		return
	}
	b.IngestIndexFailures.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		IndexCount:            b.IndexCount.Load(),
		IndexErrors:           b.IndexErrors.Load(),
		IndexChanges:          b.IndexChanges.Load(),
		IndexAvgNanos:         avg(b.IndexTotalNanos.Load(), b.IndexCount.Load()),
		HistoryCount:          b.HistoryCount.Load(),
		HistoryErrors:         b.HistoryErrors.Load(),
		HistoryResults:        b.HistoryResults.Load(),
		HistoryAvgNanos:       avg(b.HistoryTotalNanos.Load(), b.HistoryCount.Load()),
		FindRenameCount:       b.FindRenameCount.Load(),
		FindRenameHits:        b.FindRenameHits.Load(),
		FindRenameErrors:      b.FindRenameErrors.Load(),
		FlushCount:            b.FlushCount.Load(),
		FlushErrors:           b.FlushErrors.Load(),
		IngestIndexFailures:   b.IngestIndexFailures.Load(),
		IngestStorageFailures: b.IngestStorageFailures.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IndexCount            int64
	IndexErrors           int64
	IndexChanges          int64
	IndexAvgNanos         int64
	HistoryCount          int64
	HistoryErrors         int64
	HistoryResults        int64
	HistoryAvgNanos       int64
	FindRenameCount       int64
	FindRenameHits        int64
	FindRenameErrors      int64
	FlushCount            int64
	FlushErrors           int64
	IngestIndexFailures   int64
	IngestStorageFailures int64
}
