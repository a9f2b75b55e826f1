package filestore_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/commenthub/internal/filestore"
)

func TestNewLocalStore(t *testing.T) {
	t.Parallel()

	t.Run("empty base dir", func(t *testing.T) {
		t.Parallel()

		s, err := filestore.NewLocalStore("")
		assert.ErrorIs(t, err, filestore.ErrInvalidConfig)
		assert.Nil(t, s)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "exports")
		_, err := filestore.NewLocalStore(dir)
		require.NoError(t, err)
		assert.DirExists(t, dir)
	})
}

func TestLocalStore_SaveOpenRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		store, err := filestore.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		ref, err := store.Save(ctx, "job.json", "application/json", strings.NewReader(`[{"id":1}]`))
		require.NoError(t, err)
		assert.Equal(t, "job.json", ref)

		f, err := store.Open(ctx, ref)
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(data))
	})

	t.Run("save overwrites an existing file", func(t *testing.T) {
		t.Parallel()

		store, err := filestore.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Save(ctx, "job.json", "", strings.NewReader("old"))
		require.NoError(t, err)
		ref, err := store.Save(ctx, "job.json", "", strings.NewReader("new"))
		require.NoError(t, err)

		f, err := store.Open(ctx, ref)
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("failed save leaves no file behind", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store, err := filestore.NewLocalStore(dir)
		require.NoError(t, err)

		_, err = store.Save(ctx, "job.json", "", failingReader{})
		require.Error(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "neither final nor temp file survives a failed write")
	})

	t.Run("open missing file", func(t *testing.T) {
		t.Parallel()

		store, err := filestore.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Open(ctx, "nope.json")
		assert.ErrorIs(t, err, filestore.ErrNotFound)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		t.Parallel()

		store, err := filestore.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Save(ctx, "job.json", "", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, store.Remove(ctx, "job.json"))
		assert.NoError(t, store.Remove(ctx, "job.json"))

		_, err = store.Open(ctx, "job.json")
		assert.ErrorIs(t, err, filestore.ErrNotFound)
	})

	t.Run("path traversal in names is neutralized", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store, err := filestore.NewLocalStore(dir)
		require.NoError(t, err)

		ref, err := store.Save(ctx, "../escape.json", "", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, "escape.json", ref)
		assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape.json"))
	})
}

// failingReader always fails, for exercising write faults.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }
