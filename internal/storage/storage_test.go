package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndResolve(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, os.WriteFile(src, []byte("mp4"), 0o644))

	id := uuid.New()
	require.NoError(t, store.Publish(id, src))

	assert.True(t, store.Exists(id))
	data, err := os.ReadFile(store.Path(id))
	require.NoError(t, err)
	assert.Equal(t, "mp4", string(data))

	// The temp original is gone either way the move happened.
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestPublishMissingSource(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	assert.Error(t, store.Publish(id, filepath.Join(t.TempDir(), "nope.mp4")))
	assert.False(t, store.Exists(id))
}

func TestRemove(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, os.WriteFile(src, []byte("mp4"), 0o644))

	id := uuid.New()
	require.NoError(t, store.Publish(id, src))
	require.NoError(t, store.Remove(id))
	assert.False(t, store.Exists(id))

	// Removing twice is not an error.
	assert.NoError(t, store.Remove(id))
}

func TestResolveUnder(t *testing.T) {
	root := t.TempDir()

	got, err := ResolveUnder(root, "song.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "song.mp3"), got)

	got, err = ResolveUnder(root, filepath.Join("nested", "song.mp3"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "nested", "song.mp3"), got)

	for _, bad := range []string{
		"",
		"/etc/passwd",
		"../outside.mp3",
		"../../etc/passwd",
		"nested/../../outside.mp3",
	} {
		_, err := ResolveUnder(root, bad)
		assert.Error(t, err, "input %q", bad)
	}
}
