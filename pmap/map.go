package pmap

import (
	"fmt"

	"github.com/hupe1980/vcslog/codec"
)

// Reader provides point lookups.
type Reader[K, V any] interface {
	// Get returns the value stored for key; ok is false for keys never
	// written or removed.
	Get(key K) (value V, ok bool, err error)
	ContainsKey(key K) (bool, error)
}

// Writer provides point mutations. Both mark the map dirty.
type Writer[K, V any] interface {
	Put(key K, value V) error
	Remove(key K) error
}

// KeyIterator enumerates keys. Iteration order is unspecified.
// Both methods stop when fn returns false and then report false.
type KeyIterator[K any] interface {
	// ProcessExistingKeys visits every live key once.
	ProcessExistingKeys(fn func(key K) bool) (bool, error)
	// ProcessKeys visits every live key and may also visit removed keys.
	ProcessKeys(fn func(key K) bool) (bool, error)
}

// Flusher exposes the dirty flag and the durability boundary.
type Flusher interface {
	IsDirty() bool
	MarkDirty() error
	// Force makes every prior mutation durable and clears the dirty flag.
	Force() error
}

// Lifecycle releases a map. After Close or CloseAndDelete every operation
// fails with ErrClosed.
type Lifecycle interface {
	IsClosed() bool
	Close() error
	CloseAndDelete() error
}

// Map is a durable key-value map.
type Map[K, V any] interface {
	Reader[K, V]
	Writer[K, V]
	KeyIterator[K]
	Flusher
	Lifecycle

	ValueCodec() codec.Codec[V]
	// KeysCount returns a cheap best-effort count of live keys, or -1.
	KeysCount() int
}

// rawReader is implemented by maps that can return a value's encoding
// without decoding it.
type rawReader[K any] interface {
	getRaw(key K) ([]byte, bool, error)
}

// AppendData extends the value stored for key.
//
// The encoding of the current value (nothing when absent) is written into a
// buffer, fn appends further bytes, and the whole buffer is decoded as one
// value and stored with Put. The value codec must accept concatenated chunks.
func AppendData[K, V any](m Map[K, V], key K, fn func(w *codec.Writer) error) error {
	vc := m.ValueCodec()
	w := codec.NewWriter(nil)

	if rr, ok := m.(rawReader[K]); ok {
		raw, found, err := rr.getRaw(key)
		if err != nil {
			return err
		}
		if found {
			_, _ = w.Write(raw)
		}
	} else {
		prior, found, err := m.Get(key)
		if err != nil {
			return err
		}
		if found {
			if err := vc.Write(w, prior); err != nil {
				return fmt.Errorf("append: encode prior value: %w", err)
			}
		}
	}

	if err := fn(w); err != nil {
		return err
	}

	v, err := codec.Decode(vc, w.Bytes())
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return m.Put(key, v)
}
