package backup

import (
	"log/slog"

	"github.com/hupe1980/vcslog/internal/fs"
	"github.com/hupe1980/vcslog/internal/resource"
)

// Options configures Snapshot and Restore.
type Options struct {
	// FS is the file system of the storage directory. Default: the OS.
	FS fs.FileSystem
	// Logger receives progress at info level.
	Logger *slog.Logger
	// Resources bounds concurrent transfers and throttles their IO.
	Resources *resource.Controller
	// Concurrency caps parallel transfers. Default: 4.
	Concurrency int
}

// Option configures Options.
type Option func(*Options)

// WithFS sets the file system.
func WithFS(fsys fs.FileSystem) Option {
	return func(o *Options) { o.FS = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithResources sets the resource controller.
func WithResources(rc *resource.Controller) Option {
	return func(o *Options) { o.Resources = rc }
}

// WithConcurrency sets the number of parallel transfers.
func WithConcurrency(n int) Option {
	return func(o *Options) { o.Concurrency = n }
}

func applyOptions(optFns []Option) Options {
	o := Options{Concurrency: 4}
	for _, fn := range optFns {
		fn(&o)
	}
	o.FS = fs.OrDefault(o.FS)
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}
