// Package codec defines the symmetric binary codecs used for persisted keys and values.
//
// A codec is a (write, read) pair. Both halves must be exact inverses and must
// consume exactly the bytes they produced: persistent maps rely on this to
// decode values built from concatenated append chunks, and to recognize keys
// written by an earlier process.
//
// Changing a codec is a breaking-change boundary: bytes written by an older
// codec may no longer decode.
package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer is returned when a read needs more bytes than remain.
	ErrShortBuffer = errors.New("codec: short buffer")

	// ErrTrailingBytes is returned by Decode when a codec leaves bytes unread.
	ErrTrailingBytes = errors.New("codec: trailing bytes")

	// ErrInvalidLength is returned when an encoded length or count is negative or overflows.
	ErrInvalidLength = errors.New("codec: invalid length")
)

// Codec writes and reads values of type T.
// Implementations must be safe for concurrent use.
type Codec[T any] interface {
	Write(w *Writer, v T) error
	Read(r *Reader) (T, error)
}

// Encode returns the encoding of v.
func Encode[T any](c Codec[T], v T) ([]byte, error) {
	w := NewWriter(nil)
	if err := c.Write(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode decodes data as a single value and fails if any byte is left unread.
func Decode[T any](c Codec[T], data []byte) (T, error) {
	r := NewReader(data)
	v, err := c.Read(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if !r.EOF() {
		var zero T
		return zero, fmt.Errorf("%w: %d bytes left", ErrTrailingBytes, r.Remaining())
	}
	return v, nil
}
