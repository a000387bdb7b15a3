package sqlitemap

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/pmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStrings(t *testing.T, dir string) *Map[string, string] {
	t.Helper()
	m, err := Open(dir, codec.String, codec.String)
	require.NoError(t, err)
	return m
}

func TestMapBasic(t *testing.T) {
	m := openStrings(t, t.TempDir())
	defer m.Close()

	assert.False(t, m.IsDirty())
	_, ok, err := m.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put("a", "1"))
	require.NoError(t, m.Put("a", "2"))
	require.NoError(t, m.Put("b", "3"))
	assert.True(t, m.IsDirty())

	v, ok, err := m.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, m.Remove("b"))
	ok, err = m.ContainsKey("b")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, m.Remove("never"))

	assert.Equal(t, -1, m.KeysCount())

	require.NoError(t, m.Force())
	assert.False(t, m.IsDirty())
	require.NoError(t, m.MarkDirty())
	assert.True(t, m.IsDirty())
}

func TestMapPersistence(t *testing.T) {
	dir := t.TempDir()
	m := openStrings(t, dir)
	require.NoError(t, m.Put("x", "1"))
	require.NoError(t, m.Put("y", "2"))
	require.NoError(t, m.Remove("y"))
	require.NoError(t, m.Close())

	m = openStrings(t, dir)
	defer m.Close()
	v, ok, err := m.Get("x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok, err = m.Get("y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapProcessKeys(t *testing.T) {
	m := openStrings(t, t.TempDir())
	defer m.Close()
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, m.Put(k, k))
	}
	require.NoError(t, m.Remove("b"))

	var keys []string
	done, err := m.ProcessKeys(func(k string) bool {
		keys = append(keys, k)
		return true
	})
	require.NoError(t, err)
	assert.True(t, done)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "c"}, keys)

	// Visitors may call back into the map.
	visited := 0
	done, err = m.ProcessExistingKeys(func(k string) bool {
		v, ok, err := m.Get(k)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, k, v)
		visited++
		return false
	})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, visited)
}

func TestMapAppendData(t *testing.T) {
	m, err := Open(t.TempDir(), codec.Int32, codec.IntPairs)
	require.NoError(t, err)
	defer m.Close()

	appendPair := func(p codec.Pair) error {
		return m.AppendData(7, func(w *codec.Writer) error {
			return codec.IntPairs.Write(w, []codec.Pair{p})
		})
	}
	require.NoError(t, appendPair(codec.Pair{First: 1, Second: 2}))
	require.NoError(t, appendPair(codec.Pair{First: 3, Second: 4}))

	v, ok, err := m.Get(7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []codec.Pair{{First: 1, Second: 2}, {First: 3, Second: 4}}, v)
}

func TestMapLifecycle(t *testing.T) {
	dir := t.TempDir()
	m := openStrings(t, dir)

	_, err := Open(dir, codec.String, codec.String)
	require.ErrorIs(t, err, pmap.ErrLocked)

	require.NoError(t, m.Put("k", "v"))
	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
	require.ErrorIs(t, m.Close(), pmap.ErrClosed)
	require.ErrorIs(t, m.Put("k", "v"), pmap.ErrClosed)
	_, _, err = m.Get("k")
	require.ErrorIs(t, err, pmap.ErrClosed)
	assert.False(t, m.IsDirty())
}

func TestMapCloseAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	m := openStrings(t, dir)
	require.NoError(t, m.Put("k", "v"))
	require.NoError(t, m.CloseAndDelete())
	assert.NoDirExists(t, dir)
	require.ErrorIs(t, m.CloseAndDelete(), pmap.ErrClosed)

	m = openStrings(t, dir)
	defer m.Close()
	_, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
