package vcslog

import (
	"log/slog"

	"github.com/hupe1980/vcslog/backup"
	"github.com/hupe1980/vcslog/internal/fs"
	"github.com/hupe1980/vcslog/internal/resource"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/hupe1980/vcslog/pmap"
)

type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	errorHandler      pathindex.ErrorHandler
	durability        pmap.Durability
	compression       pmap.Compression
	cacheBytes        int64
	ioLimit           int64
	backgroundWorkers int64
	backend           pathindex.Backend
	backupConcurrency int
	fs                fs.FileSystem
}

// Option configures Open and Restore.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vcslog.BasicMetricsCollector{}
//	l, _ := vcslog.Open(dir, roots, vcslog.WithMetricsCollector(metrics))
//	// ... use l ...
//	stats := metrics.GetStats()
//	fmt.Printf("Indexed: %d, Avg latency: %dns\n", stats.IndexCount, stats.IndexAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vcslog.NewJSONLogger(slog.LevelInfo)
//	l, _ := vcslog.Open(dir, roots, vcslog.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithErrorHandler receives failures that indexing skips instead of
// returning. The default logs them at error level.
func WithErrorHandler(h pathindex.ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = h
	}
}

// WithDurability sets when mutations reach stable storage.
func WithDurability(d pmap.Durability) Option {
	return func(o *options) {
		o.durability = d
	}
}

// WithCompression sets the value compression of new records.
func WithCompression(c pmap.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCacheSize enables a decoded-value cache of bytes per map.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheBytes = bytes
	}
}

// WithIOLimit throttles compaction and backup IO to bytesPerSec.
// Zero means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithBackgroundWorkers bounds concurrent background jobs such as backup
// transfers. Default: 1.
func WithBackgroundWorkers(n int64) Option {
	return func(o *options) {
		o.backgroundWorkers = n
	}
}

// WithBackend selects the storage of the rename map.
func WithBackend(b pathindex.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBackupConcurrency bounds the files Backup and Restore transfer in
// parallel. Default: 4.
func WithBackupConcurrency(n int) Option {
	return func(o *options) {
		o.backupConcurrency = n
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
		durability:        pmap.DurabilityAsync,
		compression:       pmap.CompressionNone,
		backend:           pathindex.BackendLog,
		backupConcurrency: 4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	o.fs = fs.OrDefault(o.fs)
	if o.errorHandler == nil {
		o.errorHandler = pathindex.LogErrorHandler(o.logger.Logger)
	}
	return o
}

func (o options) backupOptions(logger *Logger, rc *resource.Controller) []backup.Option {
	return []backup.Option{
		backup.WithFS(o.fs),
		backup.WithLogger(logger.Logger),
		backup.WithResources(rc),
		backup.WithConcurrency(o.backupConcurrency),
	}
}
