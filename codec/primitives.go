package codec

import (
	"fmt"
	"math"
)

// Int32 encodes an int32 as 4 big-endian bytes.
var Int32 Codec[int32] = int32Codec{}

// String encodes a string as a varint length followed by its bytes.
var String Codec[string] = stringCodec{}

// Bytes encodes a byte slice as a varint length followed by its bytes.
var Bytes Codec[[]byte] = bytesCodec{}

// IntPair encodes two int32 values, first then second.
var IntPair Codec[Pair] = pairCodec{}

// IntPairs encodes a pair collection as a 4-byte count followed by the pairs.
//
// Reading consumes consecutive chunks until the buffer is exhausted, so the
// concatenation of several encodings decodes to the concatenation of their
// pairs. This makes the codec usable as an append target.
var IntPairs Codec[[]Pair] = pairsCodec{}

// Pair is an ordered couple of int32 values.
type Pair struct {
	First  int32
	Second int32
}

type int32Codec struct{}

func (int32Codec) Write(w *Writer, v int32) error {
	w.WriteInt32(v)
	return nil
}

func (int32Codec) Read(r *Reader) (int32, error) {
	return r.ReadInt32()
}

type stringCodec struct{}

func (stringCodec) Write(w *Writer, v string) error {
	w.WriteUTF(v)
	return nil
}

func (stringCodec) Read(r *Reader) (string, error) {
	return r.ReadUTF()
}

type bytesCodec struct{}

func (bytesCodec) Write(w *Writer, v []byte) error {
	w.WriteBytes(v)
	return nil
}

func (bytesCodec) Read(r *Reader) ([]byte, error) {
	return r.ReadBytes()
}

type pairCodec struct{}

func (pairCodec) Write(w *Writer, v Pair) error {
	w.WriteInt32(v.First)
	w.WriteInt32(v.Second)
	return nil
}

func (pairCodec) Read(r *Reader) (Pair, error) {
	first, err := r.ReadInt32()
	if err != nil {
		return Pair{}, err
	}
	second, err := r.ReadInt32()
	if err != nil {
		return Pair{}, err
	}
	return Pair{First: first, Second: second}, nil
}

type pairsCodec struct{}

func (pairsCodec) Write(w *Writer, v []Pair) error {
	if len(v) > math.MaxInt32 {
		return fmt.Errorf("%w: %d pairs", ErrInvalidLength, len(v))
	}
	w.WriteInt32(int32(len(v)))
	for _, p := range v {
		w.WriteInt32(p.First)
		w.WriteInt32(p.Second)
	}
	return nil
}

func (pairsCodec) Read(r *Reader) ([]Pair, error) {
	var out []Pair
	for {
		n, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		if n < 0 || int(n)*8 > r.Remaining() {
			return nil, fmt.Errorf("%w: pair count %d with %d bytes left", ErrInvalidLength, n, r.Remaining())
		}
		if out == nil {
			out = make([]Pair, 0, n)
		}
		for range n {
			p, err := IntPair.Read(r)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		if r.EOF() {
			return out, nil
		}
	}
}
