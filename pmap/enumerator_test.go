package pmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vcslog/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumeratorInterning(t *testing.T) {
	dir := t.TempDir()

	e, err := OpenEnumerator(dir, codec.String)
	require.NoError(t, err)

	a, err := e.Enumerate("a.txt")
	require.NoError(t, err)
	b, err := e.Enumerate("b.txt")
	require.NoError(t, err)
	again, err := e.Enumerate("a.txt")
	require.NoError(t, err)

	assert.Equal(t, int32(1), a)
	assert.Equal(t, int32(2), b)
	assert.Equal(t, a, again)
	assert.Equal(t, 2, e.Len())
	assert.True(t, e.IsDirty())

	_, ok, err := e.TryEnumerate("c.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, e.Len(), "TryEnumerate does not assign")

	key, ok, err := e.ValueOf(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b.txt", key)

	_, ok, err = e.ValueOf(NullID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.Force())
	assert.False(t, e.IsDirty())
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())

	// Same ids after reopen; new keys continue the sequence.
	e, err = OpenEnumerator(dir, codec.String)
	require.NoError(t, err)
	defer e.Close()

	id, ok, err := e.TryEnumerate("a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, id)

	c, err := e.Enumerate("c.txt")
	require.NoError(t, err)
	assert.Equal(t, int32(3), c)

	var seen []string
	require.NoError(t, e.Range(func(id int32, key string) bool {
		seen = append(seen, key)
		return true
	}))
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, seen)

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Keys)
}

func TestEnumeratorCompact(t *testing.T) {
	e, err := OpenEnumerator(t.TempDir(), codec.Int32)
	require.NoError(t, err)
	defer e.Close()

	for i := range int32(10) {
		_, err := e.Enumerate(i * 100)
		require.NoError(t, err)
	}
	_, err = e.Compact(t.Context())
	require.NoError(t, err)

	id, ok, err := e.TryEnumerate(900)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(10), id)
}

func TestEnumeratorCloseAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "paths")

	e, err := OpenEnumerator(dir, codec.String)
	require.NoError(t, err)
	_, err = e.Enumerate("x")
	require.NoError(t, err)

	require.NoError(t, e.CloseAndDelete())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	require.ErrorIs(t, e.CloseAndDelete(), ErrClosed)
	require.ErrorIs(t, e.Close(), ErrClosed)

	e, err = OpenEnumerator(dir, codec.String)
	require.NoError(t, err)
	defer e.Close()
	id, err := e.Enumerate("y")
	require.NoError(t, err)
	assert.Equal(t, int32(1), id)
}
