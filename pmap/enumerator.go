package pmap

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"

	"github.com/hupe1980/vcslog/codec"
)

// NullID is never assigned by an Enumerator and marks a failed encoding.
const NullID int32 = 0

// ErrEnumeratorFull is returned when the id space is exhausted.
var ErrEnumeratorFull = errors.New("pmap: enumerator id space exhausted")

// Enumerator interns keys to dense int32 ids starting at 1.
//
// The same key yields the same id for the lifetime of the storage, also
// across reopen. Ids are never reused. It is stored as two LogMaps, key to id
// under keys/ and id to key under ids/; the next id is derived from the
// largest stored id when opened.
type Enumerator[K any] struct {
	dir string

	mu      sync.Mutex
	forward *LogMap[K, int32]
	reverse *LogMap[int32, K]
	next    int32
}

// OpenEnumerator opens or creates the enumerator stored in dir.
func OpenEnumerator[K any](dir string, keyCodec codec.Codec[K], opts ...Option) (*Enumerator[K], error) {
	reverse, err := Open[int32, K](filepath.Join(dir, "ids"), codec.Int32, keyCodec, opts...)
	if err != nil {
		return nil, err
	}
	forward, err := Open[K, int32](filepath.Join(dir, "keys"), keyCodec, codec.Int32, opts...)
	if err != nil {
		_ = reverse.Close()
		return nil, err
	}

	maxID := NullID
	if _, err := reverse.ProcessExistingKeys(func(id int32) bool {
		maxID = max(maxID, id)
		return true
	}); err != nil {
		_ = forward.Close()
		_ = reverse.Close()
		return nil, err
	}

	return &Enumerator[K]{
		dir:     dir,
		forward: forward,
		reverse: reverse,
		next:    maxID + 1,
	}, nil
}

// Enumerate returns the id of key, assigning the next id on first use.
func (e *Enumerator[K]) Enumerate(key K) (int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok, err := e.forward.Get(key)
	if err != nil {
		return NullID, err
	}
	if ok {
		return id, nil
	}
	if e.next == math.MaxInt32 {
		return NullID, ErrEnumeratorFull
	}

	id = e.next
	// The reverse entry goes first: a crash in between leaves an id
	// without a key, which only skips that id.
	if err := e.reverse.Put(id, key); err != nil {
		return NullID, err
	}
	if err := e.forward.Put(key, id); err != nil {
		return NullID, err
	}
	e.next++
	return id, nil
}

// TryEnumerate returns the id of key without assigning one.
func (e *Enumerator[K]) TryEnumerate(key K) (int32, bool, error) {
	id, ok, err := e.forward.Get(key)
	if err != nil || !ok {
		return NullID, false, err
	}
	return id, true, nil
}

// ValueOf returns the key interned as id.
func (e *Enumerator[K]) ValueOf(id int32) (K, bool, error) {
	if id <= NullID {
		var zero K
		return zero, false, nil
	}
	return e.reverse.Get(id)
}

// Range visits ids in ascending order until fn returns false.
func (e *Enumerator[K]) Range(fn func(id int32, key K) bool) error {
	e.mu.Lock()
	last := e.next - 1
	e.mu.Unlock()

	for id := int32(1); id <= last; id++ {
		key, ok, err := e.reverse.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !fn(id, key) {
			return nil
		}
	}
	return nil
}

// Len returns the number of assigned ids.
func (e *Enumerator[K]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.next - 1)
}

// IsDirty reports whether either side has unflushed mutations.
func (e *Enumerator[K]) IsDirty() bool {
	return e.forward.IsDirty() || e.reverse.IsDirty()
}

// Force flushes both sides, ids before keys.
func (e *Enumerator[K]) Force() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reverse.Force(); err != nil {
		return err
	}
	return e.forward.Force()
}

// IsClosed reports whether the enumerator was closed.
func (e *Enumerator[K]) IsClosed() bool {
	return e.forward.IsClosed()
}

// Close flushes and releases both sides.
func (e *Enumerator[K]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.reverse.Close(), e.forward.Close())
}

// CloseAndDelete closes the enumerator and removes its directory.
func (e *Enumerator[K]) CloseAndDelete() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.forward.IsClosed() {
		return ErrClosed
	}
	err := errors.Join(e.reverse.CloseAndDelete(), e.forward.CloseAndDelete())
	if rerr := e.forward.opts.FS.RemoveAll(e.dir); rerr != nil {
		err = errors.Join(err, ioError("delete", e.dir, rerr))
	}
	return err
}

// Compact compacts both sides.
func (e *Enumerator[K]) Compact(ctx context.Context) (CompactStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, err := e.reverse.Compact(ctx)
	if err != nil {
		return a, err
	}
	b, err := e.forward.Compact(ctx)
	return CompactStats{
		BytesBefore:       a.BytesBefore + b.BytesBefore,
		BytesAfter:        a.BytesAfter + b.BytesAfter,
		TombstonesDropped: a.TombstonesDropped + b.TombstonesDropped,
		Duration:          a.Duration + b.Duration,
	}, err
}

// Stats returns the combined storage statistics of both sides.
func (e *Enumerator[K]) Stats() (Stats, error) {
	a, err := e.reverse.Stats()
	if err != nil {
		return Stats{}, err
	}
	b, err := e.forward.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Keys:        b.Keys,
		Tombstones:  a.Tombstones + b.Tombstones,
		LogBytes:    a.LogBytes + b.LogBytes,
		StaleBytes:  a.StaleBytes + b.StaleBytes,
		CacheHits:   a.CacheHits + b.CacheHits,
		CacheMisses: a.CacheMisses + b.CacheMisses,
	}, nil
}
