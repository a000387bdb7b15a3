package compress

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("src/main/java/Foo.java "), 500)

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			block, err := Compress(data, typ)
			require.NoError(t, err)
			if typ != None {
				assert.Less(t, len(block), len(data)/2)
			}

			got, err := Decompress(block)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestCompressIncompressible(t *testing.T) {
	data := make([]byte, 4096)
	_, err := rand.Read(data)
	require.NoError(t, err)

	for _, typ := range []Type{LZ4, ZSTD} {
		block, err := Compress(data, typ)
		require.NoError(t, err)
		assert.Len(t, block, headerSize+len(data), "stored verbatim")

		got, err := Decompress(block)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestCompressEmpty(t *testing.T) {
	for _, typ := range []Type{None, LZ4, ZSTD} {
		block, err := Compress(nil, typ)
		require.NoError(t, err)
		got, err := Decompress(block)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress([]byte{1, 2})
	require.ErrorIs(t, err, ErrCorruptBlock)

	block, err := Compress(bytes.Repeat([]byte("a"), 1000), ZSTD)
	require.NoError(t, err)
	_, err = Decompress(block[:len(block)-1])
	require.ErrorIs(t, err, ErrCorruptBlock)

	block[0] = 7
	_, err = Decompress(block)
	require.ErrorIs(t, err, ErrCorruptBlock)
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{None, LZ4, ZSTD} {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("brotli")
	assert.Error(t, err)
}

func TestZstdStream(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewZstdWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("backup payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewZstdReader(&buf)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "backup payload", string(got))
}
