package pmap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/internal/cache"
	"github.com/hupe1980/vcslog/internal/compress"
	"github.com/hupe1980/vcslog/internal/wal"
)

const (
	logFileName  = "data.log"
	hintFileName = "keydir.hint"
	lockFileName = "LOCK"
)

// LogMap is a Map stored as an append-only record log in one directory.
//
// Every Put and Remove appends a record; the in-memory key directory points
// at the latest record of each key. Removed keys stay in the directory as
// tombstones until Compact, which is why ProcessKeys may surface them.
type LogMap[K, V any] struct {
	dir        string
	keyCodec   codec.Codec[K]
	valueCodec codec.Codec[V]
	opts       Options
	logger     *slog.Logger

	mu     sync.RWMutex
	log    *wal.WAL
	keydir map[string]entry
	live   int
	lock   *dirLock
	cache  *cache.LRU[string, V]

	dirty  atomic.Bool
	closed atomic.Bool
}

var _ Map[string, string] = (*LogMap[string, string])(nil)

// Open opens or creates the map stored in dir.
func Open[K, V any](dir string, keyCodec codec.Codec[K], valueCodec codec.Codec[V], optFns ...Option) (*LogMap[K, V], error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.FS.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError("open", dir, err)
	}

	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}

	m := &LogMap[K, V]{
		dir:        dir,
		keyCodec:   keyCodec,
		valueCodec: valueCodec,
		opts:       opts,
		logger:     opts.Logger.With("map", dir),
		lock:       lock,
	}
	if opts.CacheBytes > 0 {
		m.cache = cache.NewLRU[string, V](opts.CacheBytes, opts.Resources)
	}

	if err := m.load(); err != nil {
		_ = lock.Close()
		return nil, err
	}
	return m, nil
}

func (m *LogMap[K, V]) path(name string) string {
	return filepath.Join(m.dir, name)
}

// load opens the log, seeds the key directory from the hint and replays
// the records written after it.
func (m *LogMap[K, V]) load() error {
	fsys := m.opts.FS
	// Leftover of an interrupted compaction.
	_ = fsys.Remove(m.path(logFileName + compactSuffix))

	log, err := wal.Open(fsys, m.path(logFileName), wal.Options{Durability: m.opts.Durability})
	if err != nil {
		if errors.Is(err, wal.ErrInvalidHeader) || errors.Is(err, wal.ErrIncompatibleVersion) {
			return corruptError("open", m.path(logFileName), err)
		}
		return ioError("open", m.path(logFileName), err)
	}

	m.keydir = make(map[string]entry)
	from := int64(wal.HeaderSize)
	fromHint := false

	h, err := readHint(fsys, m.path(hintFileName))
	switch {
	case err == nil && h.logOffset >= wal.HeaderSize && h.logOffset <= log.Size():
		m.keydir = h.keydir
		from = h.logOffset
		fromHint = true
	case err == nil:
		m.logger.Warn("ignoring hint beyond end of log", "hint_offset", h.logOffset, "log_size", log.Size())
	case errors.Is(err, os.ErrNotExist):
	default:
		m.logger.Warn("ignoring unreadable hint", "error", err)
	}

	replayed, err := m.replay(log, from)
	if err != nil {
		_ = log.Close()
		return err
	}

	m.log = log
	for _, e := range m.keydir {
		if !e.deleted {
			m.live++
		}
	}

	m.logger.Debug("log map opened",
		"keys", m.live,
		"from_hint", fromHint,
		"replayed", replayed,
		"log_bytes", log.Size(),
	)
	return nil
}

func (m *LogMap[K, V]) replay(log *wal.WAL, from int64) (int, error) {
	reader, err := log.Reader(from)
	if err != nil {
		return 0, ioError("replay", log.Path(), err)
	}
	defer reader.Close()

	replayed := 0
	for {
		rec, pos, err := reader.Next()
		if err == io.EOF {
			return replayed, nil
		}
		if err != nil && !wal.IsDamaged(err) {
			return replayed, ioError("replay", log.Path(), err)
		}
		if err != nil {
			valid := reader.Offset()
			m.logger.Warn("truncating damaged log tail",
				"offset", valid,
				"log_size", log.Size(),
				"error", err,
			)
			if terr := log.Truncate(valid); terr != nil {
				return replayed, ioError("replay", log.Path(), terr)
			}
			return replayed, nil
		}
		m.apply(rec, pos)
		replayed++
	}
}

func (m *LogMap[K, V]) apply(rec *wal.Record, pos wal.Position) {
	k := string(rec.Key)
	switch rec.Type {
	case wal.RecordTypePut:
		m.keydir[k] = entry{offset: pos.ValueOffset, size: int32(pos.ValueLen)}
	case wal.RecordTypeDelete:
		m.keydir[k] = entry{deleted: true}
	}
}

func (m *LogMap[K, V]) checkOpen() error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (m *LogMap[K, V]) encodeKey(key K) (string, error) {
	b, err := codec.Encode(m.keyCodec, key)
	if err != nil {
		return "", fmt.Errorf("pmap: encode key: %w", err)
	}
	return string(b), nil
}

// Get implements Reader. Returned values must not be mutated.
func (m *LogMap[K, V]) Get(key K) (V, bool, error) {
	var zero V
	k, err := m.encodeKey(key)
	if err != nil {
		return zero, false, err
	}

	// The read lock also orders cache fills against Put and Remove.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return zero, false, err
	}

	if m.cache != nil {
		if v, ok := m.cache.Get(k); ok {
			return v, true, nil
		}
	}

	raw, ok, err := m.readRawLocked(k)
	if err != nil || !ok {
		return zero, false, err
	}

	v, err := codec.Decode(m.valueCodec, raw)
	if err != nil {
		return zero, false, corruptError("get", m.path(logFileName), err)
	}
	if m.cache != nil {
		m.cache.Set(k, v, int64(len(raw)))
	}
	return v, true, nil
}

func (m *LogMap[K, V]) getRaw(key K) ([]byte, bool, error) {
	k, err := m.encodeKey(key)
	if err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return nil, false, err
	}
	return m.readRawLocked(k)
}

// readRawLocked returns the encoded value of k. Callers hold mu.
func (m *LogMap[K, V]) readRawLocked(k string) ([]byte, bool, error) {
	e, ok := m.keydir[k]
	if !ok || e.deleted {
		return nil, false, nil
	}

	block, err := m.log.ReadAt(e.offset, int(e.size))
	if err != nil {
		return nil, false, ioError("get", m.path(logFileName), err)
	}
	raw, err := compress.Decompress(block)
	if err != nil {
		return nil, false, corruptError("get", m.path(logFileName), err)
	}
	return raw, true, nil
}

// ContainsKey implements Reader.
func (m *LogMap[K, V]) ContainsKey(key K) (bool, error) {
	k, err := m.encodeKey(key)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	e, ok := m.keydir[k]
	return ok && !e.deleted, nil
}

// Put implements Writer.
func (m *LogMap[K, V]) Put(key K, value V) error {
	k, err := m.encodeKey(key)
	if err != nil {
		return err
	}
	raw, err := codec.Encode(m.valueCodec, value)
	if err != nil {
		return fmt.Errorf("pmap: encode value: %w", err)
	}
	block, err := compress.Compress(raw, m.opts.Compression)
	if err != nil {
		return fmt.Errorf("pmap: compress value: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}

	if m.cache != nil {
		m.cache.Delete(k)
	}
	m.dirty.Store(true)

	pos, err := m.log.Append(&wal.Record{Type: wal.RecordTypePut, Key: []byte(k), Value: block})
	if err != nil {
		return ioError("put", m.path(logFileName), err)
	}

	if e, ok := m.keydir[k]; !ok || e.deleted {
		m.live++
	}
	m.keydir[k] = entry{offset: pos.ValueOffset, size: int32(pos.ValueLen)}
	return nil
}

// Remove implements Writer. Removing an absent key only marks the map dirty.
func (m *LogMap[K, V]) Remove(key K) error {
	k, err := m.encodeKey(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}

	m.dirty.Store(true)
	e, ok := m.keydir[k]
	if !ok || e.deleted {
		return nil
	}
	if m.cache != nil {
		m.cache.Delete(k)
	}

	if _, err := m.log.Append(&wal.Record{Type: wal.RecordTypeDelete, Key: []byte(k)}); err != nil {
		return ioError("remove", m.path(logFileName), err)
	}
	m.keydir[k] = entry{deleted: true}
	m.live--
	return nil
}

// AppendData extends the value stored for key; see the package-level AppendData.
func (m *LogMap[K, V]) AppendData(key K, fn func(w *codec.Writer) error) error {
	return AppendData[K, V](m, key, fn)
}

// ProcessExistingKeys implements KeyIterator.
func (m *LogMap[K, V]) ProcessExistingKeys(fn func(key K) bool) (bool, error) {
	return m.processKeys(false, fn)
}

// ProcessKeys implements KeyIterator. Removed keys that were not compacted
// away yet are visited as well.
func (m *LogMap[K, V]) ProcessKeys(fn func(key K) bool) (bool, error) {
	return m.processKeys(true, fn)
}

func (m *LogMap[K, V]) processKeys(withRemoved bool, fn func(key K) bool) (bool, error) {
	m.mu.RLock()
	if err := m.checkOpen(); err != nil {
		m.mu.RUnlock()
		return false, err
	}
	keys := make([]string, 0, len(m.keydir))
	for k, e := range m.keydir {
		if withRemoved || !e.deleted {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	// fn runs without the lock so it may call back into the map.
	for _, k := range keys {
		key, err := codec.Decode(m.keyCodec, []byte(k))
		if err != nil {
			return false, corruptError("iterate", m.path(logFileName), err)
		}
		if !fn(key) {
			return false, nil
		}
	}
	return true, nil
}

// ValueCodec implements Map.
func (m *LogMap[K, V]) ValueCodec() codec.Codec[V] { return m.valueCodec }

// KeyCodec returns the key codec.
func (m *LogMap[K, V]) KeyCodec() codec.Codec[K] { return m.keyCodec }

// KeysCount implements Map. It is exact for a LogMap.
func (m *LogMap[K, V]) KeysCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live
}

// IsDirty implements Flusher.
func (m *LogMap[K, V]) IsDirty() bool { return m.dirty.Load() }

// MarkDirty implements Flusher.
func (m *LogMap[K, V]) MarkDirty() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.dirty.Store(true)
	return nil
}

// Force implements Flusher: it syncs the log and snapshots the key directory.
func (m *LogMap[K, V]) Force() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.forceLocked()
}

func (m *LogMap[K, V]) forceLocked() error {
	if !m.dirty.Load() {
		return nil
	}
	if err := m.log.Sync(); err != nil {
		return ioError("force", m.path(logFileName), err)
	}
	if err := writeHint(m.opts.FS, m.path(hintFileName), hint{logOffset: m.log.Size(), keydir: m.keydir}); err != nil {
		return ioError("force", m.path(hintFileName), err)
	}
	m.dirty.Store(false)
	return nil
}

// IsClosed implements Lifecycle.
func (m *LogMap[K, V]) IsClosed() bool { return m.closed.Load() }

// Close implements Lifecycle. It forces pending mutations and releases the
// directory lock; a failed force does not keep the map open.
func (m *LogMap[K, V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *LogMap[K, V]) closeLocked() error {
	if m.closed.Load() {
		return ErrClosed
	}
	ferr := m.forceLocked()
	m.closed.Store(true)

	var cerr error
	if err := m.log.Close(); err != nil {
		cerr = ioError("close", m.path(logFileName), err)
	}
	lerr := m.lock.Close()
	if m.cache != nil {
		m.cache.Purge()
	}
	return errors.Join(ferr, cerr, lerr)
}

// CloseAndDelete implements Lifecycle: it closes the map and removes its directory.
func (m *LogMap[K, V]) CloseAndDelete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return ErrClosed
	}
	// Nothing needs to survive, so skip the hint.
	m.dirty.Store(false)
	cerr := m.closeLocked()
	if err := m.opts.FS.RemoveAll(m.dir); err != nil {
		return errors.Join(cerr, ioError("delete", m.dir, err))
	}
	return cerr
}

// Stats describes the storage of a LogMap.
type Stats struct {
	Keys        int
	Tombstones  int
	LogBytes    int64
	StaleBytes  int64 // bytes reclaimable by Compact
	CacheHits   int64
	CacheMisses int64
}

// Stats returns storage statistics.
func (m *LogMap[K, V]) Stats() (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return Stats{}, err
	}

	s := Stats{Keys: m.live, LogBytes: m.log.Size()}
	liveBytes := int64(wal.HeaderSize)
	for k, e := range m.keydir {
		if e.deleted {
			s.Tombstones++
			continue
		}
		liveBytes += (&wal.Record{Key: []byte(k)}).Size() + int64(e.size)
	}
	s.StaleBytes = max(s.LogBytes-liveBytes, 0)
	if m.cache != nil {
		s.CacheHits, s.CacheMisses = m.cache.Stats()
	}
	return s, nil
}

// Dir returns the directory of the map.
func (m *LogMap[K, V]) Dir() string { return m.dir }
