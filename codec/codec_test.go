package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, c Codec[T], v T) T {
	t.Helper()
	data, err := Encode(c, v)
	require.NoError(t, err)
	got, err := Decode(c, data)
	require.NoError(t, err)
	return got
}

func TestPrimitiveRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, math.MaxInt32, math.MinInt32} {
		assert.Equal(t, v, roundTrip(t, Int32, v))
	}

	for _, s := range []string{"", "a.txt", "src/главная/файл.go", "日本語/パス", "emoji/😀.md", "\x00\xff"} {
		assert.Equal(t, s, roundTrip(t, String, s))
	}

	assert.Equal(t, []byte{0x00, 0xff, 0x7f}, roundTrip(t, Bytes, []byte{0x00, 0xff, 0x7f}))
	assert.Empty(t, roundTrip(t, Bytes, []byte{}))

	p := Pair{First: math.MaxInt32, Second: -7}
	assert.Equal(t, p, roundTrip(t, IntPair, p))
}

func TestInt32IsBigEndian(t *testing.T) {
	data, err := Encode(Int32, 0x01020304)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestPairsRoundTrip(t *testing.T) {
	pairs := []Pair{{5, 7}, {1, 2}, {math.MaxInt32, math.MinInt32}}
	assert.Equal(t, pairs, roundTrip(t, IntPairs, pairs))
	assert.Empty(t, roundTrip(t, IntPairs, []Pair{}))

	data, err := Encode(IntPairs, []Pair{{5, 7}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 5, 0, 0, 0, 7}, data)
}

func TestPairsConcatenatedChunks(t *testing.T) {
	first, err := Encode(IntPairs, []Pair{{1, 2}})
	require.NoError(t, err)
	second, err := Encode(IntPairs, []Pair{{3, 4}, {5, 6}})
	require.NoError(t, err)

	buf := append(append([]byte{}, first...), second...)
	got, err := Decode(IntPairs, buf)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{1, 2}, {3, 4}, {5, 6}}, got)
}

func TestPairsRejectsBadCount(t *testing.T) {
	_, err := Decode(IntPairs, []byte{0, 0, 0, 9, 0, 0, 0, 1})
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = Decode(IntPairs, []byte{0xff, 0xff, 0xff, 0xff})
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(Int32, []byte{1, 2})
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = Decode(Int32, []byte{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, ErrTrailingBytes)

	_, err = Decode(String, []byte{10, 'a'})
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = Decode(String, nil)
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestWriterReader(t *testing.T) {
	w := NewWriter(nil)
	require.NoError(t, w.WriteByte(3))
	w.WriteVarInt(0)
	w.WriteVarInt(300)
	w.WriteVarInt(-5)
	w.WriteInt64(math.MinInt64)
	w.WriteUTF("x")

	r := NewReader(w.Bytes())
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(3), b)

	for _, want := range []int{0, 300, -5} {
		got, err := r.ReadVarInt()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	i64, err := r.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), i64)

	s, err := r.ReadUTF()
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	assert.True(t, r.EOF())

	_, err = r.ReadByte()
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestSmallVarIntIsOneByte(t *testing.T) {
	w := NewWriter(nil)
	w.WriteVarInt(3)
	assert.Equal(t, 1, w.Len())
}
