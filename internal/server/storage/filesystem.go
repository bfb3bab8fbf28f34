package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemStore keeps blobs on the local filesystem. Blob URLs point
// back at the API's own download endpoint since the files are not
// directly reachable over HTTP.
type FileSystemStore struct {
	basePath string
	baseURL  string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath, baseURL string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath, baseURL: baseURL}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Put writes data to a file named after the blob key.
func (fs *FileSystemStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, int64, error) {
	filePath := fs.filePath(key)

	file, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := io.Copy(file, data)
	if err != nil {
		// Clean up partial file on error
		os.Remove(filePath)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return fs.URL(key), n, nil
}

// Get opens a stored blob for reading.
func (fs *FileSystemStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(fs.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob not found for key %s", key)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return file, nil
}

// Delete removes the stored blob.
func (fs *FileSystemStore) Delete(ctx context.Context, key string) error {
	filePath := fs.filePath(key)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// URL returns the download URL served by the API itself.
func (fs *FileSystemStore) URL(key string) string {
	return fmt.Sprintf("%s/api/files/%s/download", fs.baseURL, key)
}

func (fs *FileSystemStore) filePath(key string) string {
	return filepath.Join(fs.basePath, key)
}
