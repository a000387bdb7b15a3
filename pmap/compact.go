package pmap

import (
	"cmp"
	"context"
	"errors"
	"os"
	"slices"
	"time"

	"github.com/hupe1980/vcslog/internal/wal"
)

const compactSuffix = ".compact"

// CompactStats reports the effect of a compaction.
type CompactStats struct {
	BytesBefore       int64
	BytesAfter        int64
	TombstonesDropped int
	Duration          time.Duration
}

// Compact rewrites the live records into a fresh log and drops tombstones.
//
// The map is unavailable for the duration. IO is throttled and a background
// slot is held through the configured resource controller. If ctx is
// cancelled the old log stays in place.
func (m *LogMap[K, V]) Compact(ctx context.Context) (CompactStats, error) {
	rc := m.opts.Resources
	if err := rc.AcquireBackground(ctx); err != nil {
		return CompactStats{}, err
	}
	defer rc.ReleaseBackground()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return CompactStats{}, err
	}

	start := time.Now()
	stats := CompactStats{BytesBefore: m.log.Size()}

	type liveKey struct {
		key string
		e   entry
	}
	live := make([]liveKey, 0, m.live)
	for k, e := range m.keydir {
		if e.deleted {
			stats.TombstonesDropped++
			continue
		}
		live = append(live, liveKey{key: k, e: e})
	}
	// Sequential reads of the old log.
	slices.SortFunc(live, func(a, b liveKey) int { return cmp.Compare(a.e.offset, b.e.offset) })

	fsys := m.opts.FS
	tmpPath := m.path(logFileName + compactSuffix)
	_ = fsys.Remove(tmpPath)

	next, err := wal.Open(fsys, tmpPath, wal.Options{Durability: wal.DurabilityAsync})
	if err != nil {
		return stats, ioError("compact", tmpPath, err)
	}
	abort := func(err error) (CompactStats, error) {
		_ = next.Close()
		_ = fsys.Remove(tmpPath)
		return stats, err
	}

	keydir := make(map[string]entry, len(live))
	for _, lk := range live {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		block, err := m.log.ReadAt(lk.e.offset, int(lk.e.size))
		if err != nil {
			return abort(ioError("compact", m.path(logFileName), err))
		}
		rec := &wal.Record{Type: wal.RecordTypePut, Key: []byte(lk.key), Value: block}
		if err := rc.AcquireIO(ctx, int(rec.Size())); err != nil {
			return abort(err)
		}
		pos, err := next.AppendAsync(rec)
		if err != nil {
			return abort(ioError("compact", tmpPath, err))
		}
		keydir[lk.key] = entry{offset: pos.ValueOffset, size: int32(pos.ValueLen)}
	}
	if err := next.Sync(); err != nil {
		return abort(ioError("compact", tmpPath, err))
	}
	if err := next.Close(); err != nil {
		_ = fsys.Remove(tmpPath)
		return stats, ioError("compact", tmpPath, err)
	}

	// Without a hint a crash after the rename replays the new log in full.
	if err := fsys.Remove(m.path(hintFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = fsys.Remove(tmpPath)
		return stats, ioError("compact", m.path(hintFileName), err)
	}

	if err := m.log.Close(); err != nil {
		m.logger.Warn("closing log before swap failed", "error", err)
	}
	if err := fsys.Rename(tmpPath, m.path(logFileName)); err != nil {
		// Keep serving from the old log.
		reopened, rerr := wal.Open(fsys, m.path(logFileName), wal.Options{Durability: m.opts.Durability})
		if rerr != nil {
			m.closed.Store(true)
			_ = m.lock.Close()
			return stats, errors.Join(ioError("compact", tmpPath, err), ioError("compact", m.path(logFileName), rerr))
		}
		m.log = reopened
		m.dirty.Store(true)
		return stats, ioError("compact", tmpPath, err)
	}

	reopened, err := wal.Open(fsys, m.path(logFileName), wal.Options{Durability: m.opts.Durability})
	if err != nil {
		m.closed.Store(true)
		_ = m.lock.Close()
		return stats, ioError("compact", m.path(logFileName), err)
	}
	m.log = reopened
	m.keydir = keydir
	m.dirty.Store(true)
	if err := m.forceLocked(); err != nil {
		return stats, err
	}

	stats.BytesAfter = m.log.Size()
	stats.Duration = time.Since(start)
	m.logger.Info("log map compacted",
		"bytes_before", stats.BytesBefore,
		"bytes_after", stats.BytesAfter,
		"tombstones_dropped", stats.TombstonesDropped,
		"duration", stats.Duration,
	)
	return stats, nil
}
