package blobstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	require.True(t, IsNotFound(err))

	data := []byte("immutable")
	require.NoError(t, store.Put(ctx, "b", data))
	data[0] = 'X'

	got, err := ReadAll(ctx, store, "b")
	require.NoError(t, err)
	assert.Equal(t, "immutable", string(got))

	w, err := store.Create(ctx, "a")
	require.NoError(t, err)
	_, err = io.WriteString(w, "streamed")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, 2, store.Len())

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	buf := make([]byte, 6)
	n, err := blob.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "reamed", string(buf))
	require.NoError(t, blob.Close())

	require.NoError(t, store.Delete(ctx, "a"))
	names, err = store.List(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReadAllEmptyBlob(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "empty", nil))

	data, err := ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMemoryStoreFaults(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "keep", []byte("x")))

	errBoom := errors.New("boom")
	store.SetFault(func(op, name string) error {
		if name == "keep" || op == "commit" {
			return errBoom
		}
		return nil
	})

	_, err := store.Open(ctx, "keep")
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, store.Delete(ctx, "keep"), errBoom)

	w, err := store.Create(ctx, "new")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	assert.ErrorIs(t, w.Close(), errBoom)
	_, err = w.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrBlobClosed)

	store.SetFault(nil)
	_, err = store.Open(ctx, "new")
	assert.True(t, IsNotFound(err), "failed commit leaves nothing behind")
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "a", nil), context.Canceled)
	_, err := store.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBlobReadRange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "a", []byte("0123456789")))

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 7, 10)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "789", string(data))

	_, err = blob.ReadRange(ctx, 10, 1)
	assert.ErrorIs(t, err, io.EOF)
}
