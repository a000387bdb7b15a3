// Package sqlitemap implements pmap.Map on a single SQLite table.
//
// It trades the append-only log of pmap.LogMap for SQLite's page store:
// overwrites reuse space, and removed keys are gone immediately, so
// ProcessKeys never surfaces them.
package sqlitemap

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/pmap"

	_ "modernc.org/sqlite"
)

const dbFileName = "kv.db"

// Map is a pmap.Map stored in dir/kv.db.
type Map[K, V any] struct {
	dir        string
	dbPath     string
	keyCodec   codec.Codec[K]
	valueCodec codec.Codec[V]
	logger     *slog.Logger

	mu     sync.RWMutex
	conn   *sql.DB
	lock   io.Closer
	dirty  atomic.Bool
	closed atomic.Bool
}

var _ pmap.Map[string, string] = (*Map[string, string])(nil)

type options struct {
	logger *slog.Logger
}

// Option configures a Map.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open opens or creates the map stored in dir.
func Open[K, V any](dir string, keyCodec codec.Codec[K], valueCodec codec.Codec[V], optFns ...Option) (*Map[K, V], error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(&o)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError("open", dir, err)
	}
	lock, err := pmap.LockDir(dir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, dbFileName)
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Close()
		return nil, ioError("open", dbPath, err)
	}
	// One connection serializes writers and keeps pragmas in effect.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"CREATE TABLE IF NOT EXISTS kv (k BLOB PRIMARY KEY, v BLOB NOT NULL) WITHOUT ROWID",
	}
	for _, stmt := range pragmas {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			_ = lock.Close()
			return nil, ioError("open", dbPath, err)
		}
	}

	o.logger.Debug("sqlite map opened", "path", dbPath)

	return &Map[K, V]{
		dir:        dir,
		dbPath:     dbPath,
		keyCodec:   keyCodec,
		valueCodec: valueCodec,
		logger:     o.logger.With("map", dir),
		conn:       conn,
		lock:       lock,
	}, nil
}

func ioError(op, path string, err error) error {
	return &pmap.Error{Op: op, Path: path, Err: err}
}

func corruptError(op, path string, err error) error {
	return &pmap.Error{Op: op, Path: path, Err: fmt.Errorf("%w: %w", pmap.ErrCorrupt, err)}
}

func (m *Map[K, V]) checkOpen() error {
	if m.closed.Load() {
		return pmap.ErrClosed
	}
	return nil
}

// Get implements pmap.Reader.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	k, err := codec.Encode(m.keyCodec, key)
	if err != nil {
		return zero, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return zero, false, err
	}

	var raw []byte
	err = m.conn.QueryRow("SELECT v FROM kv WHERE k = ?", k).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, ioError("get", m.dbPath, err)
	}

	v, err := codec.Decode(m.valueCodec, raw)
	if err != nil {
		return zero, false, corruptError("get", m.dbPath, err)
	}
	return v, true, nil
}

// ContainsKey implements pmap.Reader.
func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	k, err := codec.Encode(m.keyCodec, key)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return false, err
	}

	var one int
	err = m.conn.QueryRow("SELECT 1 FROM kv WHERE k = ?", k).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, ioError("contains", m.dbPath, err)
	}
	return true, nil
}

// Put implements pmap.Writer.
func (m *Map[K, V]) Put(key K, value V) error {
	k, err := codec.Encode(m.keyCodec, key)
	if err != nil {
		return err
	}
	v, err := codec.Encode(m.valueCodec, value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}

	m.dirty.Store(true)
	if _, err := m.conn.Exec("INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)", k, v); err != nil {
		return ioError("put", m.dbPath, err)
	}
	return nil
}

// Remove implements pmap.Writer.
func (m *Map[K, V]) Remove(key K) error {
	k, err := codec.Encode(m.keyCodec, key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}

	m.dirty.Store(true)
	if _, err := m.conn.Exec("DELETE FROM kv WHERE k = ?", k); err != nil {
		return ioError("remove", m.dbPath, err)
	}
	return nil
}

// AppendData extends the value stored for key; see pmap.AppendData.
func (m *Map[K, V]) AppendData(key K, fn func(w *codec.Writer) error) error {
	return pmap.AppendData[K, V](m, key, fn)
}

// ProcessExistingKeys implements pmap.KeyIterator.
func (m *Map[K, V]) ProcessExistingKeys(fn func(key K) bool) (bool, error) {
	m.mu.RLock()
	if err := m.checkOpen(); err != nil {
		m.mu.RUnlock()
		return false, err
	}
	keys, err := m.loadKeys()
	m.mu.RUnlock()
	if err != nil {
		return false, err
	}

	for _, raw := range keys {
		key, err := codec.Decode(m.keyCodec, raw)
		if err != nil {
			return false, corruptError("iterate", m.dbPath, err)
		}
		if !fn(key) {
			return false, nil
		}
	}
	return true, nil
}

// ProcessKeys implements pmap.KeyIterator; it is the same as ProcessExistingKeys.
func (m *Map[K, V]) ProcessKeys(fn func(key K) bool) (bool, error) {
	return m.ProcessExistingKeys(fn)
}

// loadKeys reads every key up front: the single connection must be free
// while the visitor calls back into the map.
func (m *Map[K, V]) loadKeys() ([][]byte, error) {
	rows, err := m.conn.Query("SELECT k FROM kv")
	if err != nil {
		return nil, ioError("iterate", m.dbPath, err)
	}
	defer rows.Close()

	var keys [][]byte
	for rows.Next() {
		var k []byte
		if err := rows.Scan(&k); err != nil {
			return nil, ioError("iterate", m.dbPath, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("iterate", m.dbPath, err)
	}
	return keys, nil
}

// ValueCodec implements pmap.Map.
func (m *Map[K, V]) ValueCodec() codec.Codec[V] { return m.valueCodec }

// KeysCount implements pmap.Map. Counting rows is a scan, so it reports -1.
func (m *Map[K, V]) KeysCount() int { return -1 }

// IsDirty implements pmap.Flusher.
func (m *Map[K, V]) IsDirty() bool { return m.dirty.Load() }

// MarkDirty implements pmap.Flusher.
func (m *Map[K, V]) MarkDirty() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.dirty.Store(true)
	return nil
}

// Force implements pmap.Flusher by checkpointing the write-ahead log into
// the database file.
func (m *Map[K, V]) Force() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.forceLocked()
}

func (m *Map[K, V]) forceLocked() error {
	if !m.dirty.Load() {
		return nil
	}
	if _, err := m.conn.Exec("PRAGMA wal_checkpoint(FULL)"); err != nil {
		return ioError("force", m.dbPath, err)
	}
	m.dirty.Store(false)
	return nil
}

// IsClosed implements pmap.Lifecycle.
func (m *Map[K, V]) IsClosed() bool { return m.closed.Load() }

// Close implements pmap.Lifecycle.
func (m *Map[K, V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Map[K, V]) closeLocked() error {
	if m.closed.Load() {
		return pmap.ErrClosed
	}
	ferr := m.forceLocked()
	m.closed.Store(true)

	var cerr error
	if err := m.conn.Close(); err != nil {
		cerr = ioError("close", m.dbPath, err)
	}
	m.logger.Debug("sqlite map closed")
	return errors.Join(ferr, cerr, m.lock.Close())
}

// CloseAndDelete implements pmap.Lifecycle.
func (m *Map[K, V]) CloseAndDelete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return pmap.ErrClosed
	}
	m.dirty.Store(false)
	cerr := m.closeLocked()
	if err := os.RemoveAll(m.dir); err != nil {
		return errors.Join(cerr, ioError("delete", m.dir, err))
	}
	return cerr
}
