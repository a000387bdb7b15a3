package vcslog

import (
	"context"

	"github.com/hupe1980/vcslog/backup"
	"github.com/hupe1980/vcslog/blobstore"
)

// Compact rewrites every log-backed map without stale records.
// Writers block for the duration.
func (l *Log) Compact(ctx context.Context) (CompactStats, error) {
	stats, err := l.compact(ctx)
	l.logger.LogCompaction(ctx, stats, err)
	return stats, err
}

func (l *Log) compact(ctx context.Context) (CompactStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkOpen(); err != nil {
		return CompactStats{}, err
	}

	total, err := l.index.Compact(ctx)
	if err != nil {
		return total, translateError(err)
	}
	s, err := l.commits.Compact(ctx)
	total.BytesBefore += s.BytesBefore
	total.BytesAfter += s.BytesAfter
	total.TombstonesDropped += s.TombstonesDropped
	total.Duration += s.Duration
	return total, translateError(err)
}

// Backup flushes the Log and uploads a snapshot of its directory to store.
// Writers block until the upload finishes.
func (l *Log) Backup(ctx context.Context, store blobstore.BlobStore) (*backup.Manifest, error) {
	m, err := l.backup(ctx, store)
	var gen string
	var files int
	if m != nil {
		gen, files = m.Generation, len(m.Files)
	}
	l.logger.LogBackup(ctx, gen, files, err)
	return m, err
}

func (l *Log) backup(ctx context.Context, store blobstore.BlobStore) (*backup.Manifest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.flush(); err != nil {
		return nil, err
	}
	m, err := backup.Snapshot(ctx, l.dir, store, l.opts.backupOptions(l.logger, l.resources)...)
	return m, translateError(err)
}

// Restore downloads the latest snapshot in store into dir, which must be
// missing or empty. Open the directory afterwards.
func Restore(ctx context.Context, store blobstore.BlobStore, dir string, optFns ...Option) (*backup.Manifest, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithDir(dir)
	m, err := backup.Restore(ctx, store, dir, o.backupOptions(logger, newController(o))...)
	if err != nil {
		err = translateError(err)
		logger.ErrorContext(ctx, "restore failed", "error", err)
		return nil, err
	}
	return m, nil
}

// Prune deletes every blob in store that does not belong to the current
// snapshot and returns how many were removed.
func Prune(ctx context.Context, store blobstore.BlobStore) (int, error) {
	n, err := backup.Prune(ctx, store)
	return n, translateError(err)
}
