package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer is an append-only output buffer.
// Fixed-width integers are big endian.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer appending to buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the written bytes. The slice aliases the internal buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of written bytes.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards all written bytes and keeps the capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteInt32 writes v as 4 big-endian bytes.
func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

// WriteUint32 writes v as 4 big-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteInt64 writes v as 8 big-endian bytes.
func (w *Writer) WriteInt64(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

// WriteVarInt writes v in zig-zag varint form (1 byte for small values).
func (w *Writer) WriteVarInt(v int) {
	w.buf = binary.AppendVarint(w.buf, int64(v))
}

// WriteUTF writes a varint byte length followed by the string bytes.
func (w *Writer) WriteUTF(s string) {
	w.buf = binary.AppendUvarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a varint length followed by p.
func (w *Writer) WriteBytes(p []byte) {
	w.buf = binary.AppendUvarint(w.buf, uint64(len(p)))
	w.buf = append(w.buf, p...)
}

// Reader reads from an in-memory buffer written by Writer.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// EOF reports whether every byte has been consumed.
func (r *Reader) EOF() bool { return r.off >= len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Offset returns the number of consumed bytes.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, r.Remaining())
	}
	return nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

// ReadInt32 reads 4 big-endian bytes.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint32 reads 4 big-endian bytes.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// ReadInt64 reads 8 big-endian bytes.
func (r *Reader) ReadInt64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return int64(v), nil
}

// ReadVarInt reads a value written by WriteVarInt.
func (r *Reader) ReadVarInt() (int, error) {
	v, n := binary.Varint(r.data[r.off:])
	if n == 0 {
		return 0, fmt.Errorf("%w: varint at offset %d", ErrShortBuffer, r.off)
	}
	if n < 0 || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w: varint overflow at offset %d", ErrInvalidLength, r.off)
	}
	r.off += n
	return int(v), nil
}

func (r *Reader) readLength() (int, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n == 0 {
		return 0, fmt.Errorf("%w: length at offset %d", ErrShortBuffer, r.off)
	}
	if n < 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: length overflow at offset %d", ErrInvalidLength, r.off)
	}
	r.off += n
	return int(v), nil
}

// ReadUTF reads a string written by WriteUTF.
func (r *Reader) ReadUTF() (string, error) {
	p, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// ReadBytes reads a byte slice written by WriteBytes. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.readLength()
	if err != nil {
		return nil, err
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	p := make([]byte, n)
	copy(p, r.data[r.off:r.off+n])
	r.off += n
	return p, nil
}
