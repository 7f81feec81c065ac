// Package storage holds registered output files. Keys are slash-separated
// ("<owner>/<id>.<ext>") and are chosen by the caller.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/wudi/pdfworks/errs"
)

// BlobStore is the durable home of output files.
type BlobStore interface {
	// Import moves the local file at localPath under key and returns the
	// stored size. The local file no longer exists afterwards.
	Import(ctx context.Context, key, localPath string) (int64, error)
	// Open returns the content stored under key, or errs.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// ValidKey reports whether key is a clean relative slash path.
func ValidKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") || path.Clean(key) != key {
		return errs.Wrap(errs.ErrInvalidParameter, "storage key "+key, nil)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return errs.Wrap(errs.ErrInvalidParameter, "storage key "+key, nil)
		}
	}
	return nil
}
