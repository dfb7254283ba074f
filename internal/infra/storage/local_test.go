package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutGetDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	content := "hello document"

	err = store.Put(ctx, "file-1", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	rc, err := store.Get(ctx, "file-1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, string(data))

	require.NoError(t, store.Delete(ctx, "file-1"))

	_, err = store.Get(ctx, "file-1")
	assert.Error(t, err)
}

func TestLocalStoreDeleteAbsentIsNoop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "never-existed"))
}

func TestLocalStoreRejectsSizeMismatch(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "file-1", strings.NewReader("short"), 100)
	assert.Error(t, err)
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		assert.Error(t, store.Put(ctx, id, strings.NewReader("x"), 1), "id %q", id)
		assert.Error(t, store.Delete(ctx, id), "id %q", id)
	}
}
