// Package filestore persists finished export documents. Implementations
// share overwrite-on-same-name semantics: saving under an existing name
// replaces the previous file.
package filestore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when a file reference does not resolve.
	ErrNotFound = errors.New("filestore: file not found")

	// ErrInvalidConfig is returned for unusable store configuration.
	ErrInvalidConfig = errors.New("filestore: invalid configuration")
)

// FileStore is a durable sink for serialized documents. Save consumes the
// reader fully and returns the reference under which the file can later be
// opened; the reference is what ends up on a successful export job.
type FileStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
}
