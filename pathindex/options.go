package pathindex

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/vcslog/pmap"
)

// Backend selects the map implementation holding rename edges.
type Backend string

const (
	// BackendLog stores renames in a pmap.LogMap.
	BackendLog Backend = "log"
	// BackendSQLite stores renames in a sqlitemap.Map.
	BackendSQLite Backend = "sqlite"
)

// ParseBackend parses a backend name. The empty string selects BackendLog.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendLog:
		return BackendLog, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("pathindex: unknown backend %q", s)
	}
}

// Options configures an Index.
type Options struct {
	Logger *slog.Logger
	// ErrorHandler receives per-path ingestion failures. Defaults to
	// LogErrorHandler(Logger).
	ErrorHandler ErrorHandler
	// MapOptions are passed to every LogMap of the index.
	MapOptions []pmap.Option
	Backend    Backend
}

// Option configures an Index.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithErrorHandler sets the handler for failures that are not returned.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *Options) {
		o.ErrorHandler = h
	}
}

// WithMapOptions appends options for the underlying maps.
func WithMapOptions(opts ...pmap.Option) Option {
	return func(o *Options) {
		o.MapOptions = append(o.MapOptions, opts...)
	}
}

// WithBackend selects the rename map implementation.
func WithBackend(b Backend) Option {
	return func(o *Options) {
		o.Backend = b
	}
}
