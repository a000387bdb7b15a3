package vcslog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vcslog/internal/resource"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/hupe1980/vcslog/pmap"
)

const (
	// CommitsDir holds the commit hash enumerator.
	CommitsDir = "commits"
	// PathsDir holds the path index.
	PathsDir = "paths"
)

// CompactStats reports the effect of Compact.
type CompactStats = pmap.CompactStats

// Stats counts the stored entities of a Log.
type Stats struct {
	// Commits is the number of known hashes, including parents not indexed yet.
	Commits int
	// IndexedCommits is the number of commits whose changes are recorded.
	IndexedCommits int
	Paths          int
	// RenameEdges is -1 when the rename backend cannot count cheaply.
	RenameEdges int
}

// Log is a persistent per-path change history of a set of repository roots.
//
// A Log is safe for concurrent use. Writes are serialized; queries run
// concurrently with each other.
type Log struct {
	dir       string
	opts      options
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
	roots     pathindex.Roots

	mu      sync.RWMutex
	commits *pmap.Enumerator[commitKey]
	index   *pathindex.Index
	closed  atomic.Bool
}

// Open opens or creates the Log stored in dir for the given roots.
// Reopening with a different root set fails with ErrRootsChanged.
func Open(dir string, roots []string, optFns ...Option) (*Log, error) {
	o := applyOptions(optFns)
	ctx := context.Background()
	logger := o.logger.WithDir(dir)

	l := &Log{
		dir:       dir,
		opts:      o,
		logger:    logger,
		metrics:   o.metricsCollector,
		resources: newController(o),
	}

	mapOpts := []pmap.Option{
		pmap.WithFileSystem(o.fs),
		pmap.WithLogger(logger.Logger),
		pmap.WithDurability(o.durability),
		pmap.WithCompression(o.compression),
		pmap.WithCacheSize(o.cacheBytes),
		pmap.WithResourceController(l.resources),
	}

	index, err := pathindex.Open(filepath.Join(dir, PathsDir), roots,
		pathindex.WithLogger(logger.Logger),
		pathindex.WithErrorHandler(l.handleFailure),
		pathindex.WithMapOptions(mapOpts...),
		pathindex.WithBackend(o.backend),
	)
	if err != nil {
		err = translateError(err)
		logger.LogOpen(ctx, 0, 0, err)
		return nil, err
	}

	commits, err := pmap.OpenEnumerator(filepath.Join(dir, CommitsDir), commitKeyCodec{}, mapOpts...)
	if err != nil {
		index.Dispose()
		err = translateError(err)
		logger.LogOpen(ctx, 0, 0, err)
		return nil, err
	}

	l.index = index
	l.commits = commits
	l.roots = index.Roots()

	stats, _ := index.Stats()
	logger.LogOpen(ctx, commits.Len(), stats.Paths, nil)
	return l, nil
}

func newController(o options) *resource.Controller {
	return resource.NewController(resource.Config{
		MaxBackgroundWorkers: o.backgroundWorkers,
		IOLimitBytesPerSec:   o.ioLimit,
	})
}

func (l *Log) handleFailure(source pathindex.Source, err error) {
	l.metrics.RecordIngestFailure(source)
	l.opts.errorHandler(source, err)
}

func (l *Log) checkOpen() error {
	if l.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Dir returns the storage directory.
func (l *Log) Dir() string { return l.dir }

// Roots returns the sorted root set.
func (l *Log) Roots() []string { return l.roots.List() }

// Flush makes every mutation so far durable.
func (l *Log) Flush() error {
	start := time.Now()
	err := l.flush()
	l.metrics.RecordFlush(time.Since(start), err)
	l.logger.LogFlush(context.Background(), err)
	return err
}

func (l *Log) flush() error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	return translateError(errors.Join(l.index.Flush(), l.commits.Force()))
}

// Close flushes and releases the Log. Calling Close twice returns ErrClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Swap(true) {
		return ErrClosed
	}

	ferr := l.index.Flush()
	l.index.Dispose()
	cerr := l.commits.Close()
	return translateError(errors.Join(ferr, cerr))
}

// Stats returns entity counts.
func (l *Log) Stats() (Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkOpen(); err != nil {
		return Stats{}, err
	}

	s, err := l.index.Stats()
	if err != nil {
		return Stats{}, translateError(err)
	}
	return Stats{
		Commits:        l.commits.Len(),
		IndexedCommits: s.Commits,
		Paths:          s.Paths,
		RenameEdges:    s.RenameEdges,
	}, nil
}
