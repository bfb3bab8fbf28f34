package storage

import (
	"context"
	"io"
)

// BlobStore defines the interface for blob storage backends.
// The filesystem backend serves local development; S3 serves
// production deployments.
type BlobStore interface {
	// Put stores the blob under key and returns its public URL and the
	// number of bytes written.
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (url string, written int64, err error)
	// Get opens the blob for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for a stored blob.
	URL(key string) string
}
