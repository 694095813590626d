package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreWrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Write(context.Background(), "job/person.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "job/person.jpg", key)

	data, err := os.ReadFile(filepath.Join(store.BasePath(), "job", "person.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.True(t, store.Exists("job/person.jpg"))
}

func TestFileStoreWriteIsWriteOnce(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Write(context.Background(), "a.jpg", strings.NewReader("1"))
	require.NoError(t, err)

	_, err = store.Write(context.Background(), "a.jpg", strings.NewReader("2"))
	assert.Error(t, err)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "   ", "..", "../escape.txt", "a/../../escape.txt"} {
		_, err := store.Write(context.Background(), key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestFileStoreWriteHonorsContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Write(ctx, "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.Exists("a.jpg"))
}

func TestFileStoreMkdirAllIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.MkdirAll("job-1")
	require.NoError(t, err)
	second, err := store.MkdirAll("job-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFileStoreRemove(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	_, err = store.Write(context.Background(), "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	path, err := store.Path("a.jpg")
	require.NoError(t, err)

	require.NoError(t, store.Remove(path))
	assert.False(t, store.Exists("a.jpg"))

	// already gone
	require.NoError(t, store.Remove(path))

	outside := filepath.Join(filepath.Dir(root), "other.jpg")
	assert.ErrorIs(t, store.Remove(outside), ErrInvalidKey)
	assert.ErrorIs(t, store.Remove(root), ErrInvalidKey)
}
