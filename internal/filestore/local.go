package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps files on the local filesystem under a base directory.
// Save writes to a temp file first and renames into place, so a reader can
// never observe a partially written document under the final name.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir, creating the
// directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: failed to create base directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save implements FileStore. The content type is ignored; the filesystem
// has no use for it.
func (s *LocalStore) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	name = filepath.Base(name)
	final := filepath.Join(s.baseDir, name)

	tmp, err := os.CreateTemp(s.baseDir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("filestore: failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("filestore: failed to write %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("filestore: failed to sync %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("filestore: failed to close %q: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("filestore: failed to move %q into place: %w", name, err)
	}
	return name, nil
}

// Open implements FileStore.
func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.baseDir, filepath.Base(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("filestore: failed to open %q: %w", ref, err)
	}
	return f, nil
}

// Remove implements FileStore. Removing a missing file is a no-op.
func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	err := os.Remove(filepath.Join(s.baseDir, filepath.Base(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore: failed to remove %q: %w", ref, err)
	}
	return nil
}

// Compile-time check that LocalStore implements FileStore.
var _ FileStore = (*LocalStore)(nil)
