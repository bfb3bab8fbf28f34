package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *FileSystemStore {
	t.Helper()
	store := NewFileSystemStore(t.TempDir(), "http://localhost:8080")
	if err := store.EnsureDir(); err != nil {
		t.Fatalf("failed to ensure dir: %v", err)
	}
	return store
}

func TestFileSystemStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put and get round trip", func(t *testing.T) {
		store := newTestStore(t)
		content := "blob content"

		url, written, err := store.Put(ctx, "key1", strings.NewReader(content), int64(len(content)), "text/plain")
		if err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if written != int64(len(content)) {
			t.Errorf("expected %d bytes written, got %d", len(content), written)
		}
		if url != "http://localhost:8080/api/files/key1/download" {
			t.Errorf("unexpected url: %s", url)
		}

		rc, err := store.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("failed to read blob: %v", err)
		}
		if string(data) != content {
			t.Errorf("expected %q, got %q", content, string(data))
		}
	})

	t.Run("get missing blob fails", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.Get(ctx, "missing"); err == nil {
			t.Error("expected error for missing blob")
		}
	})

	t.Run("delete removes blob", func(t *testing.T) {
		store := newTestStore(t)
		if _, _, err := store.Put(ctx, "key1", strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if err := store.Delete(ctx, "key1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := store.Get(ctx, "key1"); err == nil {
			t.Error("blob should be gone after delete")
		}
	})

	t.Run("delete missing blob is not an error", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.Delete(ctx, "missing"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("ensure dir creates nested path", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "a", "b", "c")
		store := NewFileSystemStore(base, "http://localhost:8080")
		if err := store.EnsureDir(); err != nil {
			t.Fatalf("failed to create nested dir: %v", err)
		}
	})
}
