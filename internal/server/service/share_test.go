package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloudpix/internal/server/database"
)

// --- In-memory fakes for the store collaborators ---

type fakeFileDirectory struct {
	mu    sync.Mutex
	files map[string]*database.File
}

func newFakeFileDirectory(files ...*database.File) *fakeFileDirectory {
	dir := &fakeFileDirectory{files: make(map[string]*database.File)}
	for _, f := range files {
		dir.files[f.FileID] = f
	}
	return dir
}

func (d *fakeFileDirectory) GetFileByID(ctx context.Context, fileID string) (*database.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[fileID]
	if !ok {
		return nil, database.ErrFileNotFound
	}
	copied := *f
	return &copied, nil
}

type fakeShareLinkStore struct {
	mu        sync.Mutex
	links     map[string]*database.ShareLink
	createErr error
}

func newFakeShareLinkStore() *fakeShareLinkStore {
	return &fakeShareLinkStore{links: make(map[string]*database.ShareLink)}
}

func (s *fakeShareLinkStore) CreateShareLink(ctx context.Context, link *database.ShareLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.links[link.LinkID]; exists {
		return fmt.Errorf("duplicate link id %s", link.LinkID)
	}
	copied := *link
	s.links[link.LinkID] = &copied
	return nil
}

func (s *fakeShareLinkStore) GetShareLinkByID(ctx context.Context, linkID string) (*database.ShareLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[linkID]
	if !ok {
		return nil, database.ErrShareLinkNotFound
	}
	copied := *l
	return &copied, nil
}

func (s *fakeShareLinkStore) IncrementAccessCount(ctx context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[linkID]
	if !ok {
		return database.ErrShareLinkNotFound
	}
	l.AccessCount++
	return nil
}

func (s *fakeShareLinkStore) RevokeShareLink(ctx context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[linkID]
	if !ok {
		return database.ErrShareLinkNotFound
	}
	l.Revoked = true
	return nil
}

func (s *fakeShareLinkStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *fakeShareLinkStore) accessCount(linkID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[linkID].AccessCount
}

func activeFile(fileID, userID string) *database.File {
	return &database.File{
		FileID:   fileID,
		UserID:   userID,
		FileName: "photo.png",
		Status:   database.FileStatusActive,
	}
}

func newTestShareService(files *fakeFileDirectory, links *fakeShareLinkStore) *ShareLinkService {
	return NewShareLinkService(files, links, nil)
}

// --- CreateShareLink ---

func TestCreateShareLink(t *testing.T) {
	ctx := context.Background()

	t.Run("no expiration means never expires", func(t *testing.T) {
		links := newFakeShareLinkStore()
		svc := newTestShareService(newFakeFileDirectory(activeFile("f1", "u1")), links)

		link, err := svc.CreateShareLink(ctx, "f1", "u1", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if link.LinkID == "" {
			t.Error("expected a generated link id")
		}
		if link.ExpiresAt != nil {
			t.Errorf("expected nil expiry, got %v", link.ExpiresAt)
		}
		if link.TTLSeconds != nil {
			t.Errorf("expected nil TTL, got %v", *link.TTLSeconds)
		}
		if link.AccessCount != 0 || link.Revoked {
			t.Errorf("expected fresh link state, got count=%d revoked=%v", link.AccessCount, link.Revoked)
		}
	})

	t.Run("expiration days are calendar days", func(t *testing.T) {
		links := newFakeShareLinkStore()
		svc := newTestShareService(newFakeFileDirectory(activeFile("f1", "u1")), links)
		now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		link, err := svc.CreateShareLink(ctx, "f1", "u1", 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
		if link.ExpiresAt == nil || !link.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, link.ExpiresAt)
		}
		if link.TTLSeconds == nil {
			t.Fatal("expected a TTL hint")
		}
		if want := int64(7 * 24 * 3600); *link.TTLSeconds != want {
			t.Errorf("expected TTL %d, got %d", want, *link.TTLSeconds)
		}
	})

	t.Run("month boundary normalizes", func(t *testing.T) {
		links := newFakeShareLinkStore()
		svc := newTestShareService(newFakeFileDirectory(activeFile("f1", "u1")), links)
		svc.now = func() time.Time {
			return time.Date(2026, 1, 31, 9, 30, 0, 0, time.UTC)
		}

		link, err := svc.CreateShareLink(ctx, "f1", "u1", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
		if !link.ExpiresAt.Equal(want) {
			t.Errorf("expected %v, got %v", want, link.ExpiresAt)
		}
	})

	t.Run("negative expiration rejected", func(t *testing.T) {
		links := newFakeShareLinkStore()
		svc := newTestShareService(newFakeFileDirectory(activeFile("f1", "u1")), links)

		if _, err := svc.CreateShareLink(ctx, "f1", "u1", -1); !errors.Is(err, ErrInvalidExpiration) {
			t.Errorf("expected ErrInvalidExpiration, got %v", err)
		}
		if links.count() != 0 {
			t.Error("no record should be created")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		svc := newTestShareService(newFakeFileDirectory(), newFakeShareLinkStore())

		if _, err := svc.CreateShareLink(ctx, "missing", "u1", 0); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("unauthorized when not owner", func(t *testing.T) {
		links := newFakeShareLinkStore()
		svc := newTestShareService(newFakeFileDirectory(activeFile("f1", "owner")), links)

		if _, err := svc.CreateShareLink(ctx, "f1", "intruder", 0); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
		if links.count() != 0 {
			t.Error("unauthorized create must not persist a record")
		}
	})

	t.Run("deleted file not shareable", func(t *testing.T) {
		file := activeFile("f1", "u1")
		file.Status = database.FileStatusDeleted
		svc := newTestShareService(newFakeFileDirectory(file), newFakeShareLinkStore())

		if _, err := svc.CreateShareLink(ctx, "f1", "u1", 0); !errors.Is(err, ErrFileNotShareable) {
			t.Errorf("expected ErrFileNotShareable, got %v", err)
		}
	})

	t.Run("store failure propagates without partial state", func(t *testing.T) {
		links := newFakeShareLinkStore()
		links.createErr = errors.New("connection reset")
		svc := newTestShareService(newFakeFileDirectory(activeFile("f1", "u1")), links)

		if _, err := svc.CreateShareLink(ctx, "f1", "u1", 0); err == nil {
			t.Fatal("expected error from store")
		}
		if links.count() != 0 {
			t.Error("failed create must not leave a record")
		}
	})
}

// --- ResolveShareLink ---

func TestResolveShareLink(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, days int) (*ShareLinkService, *fakeShareLinkStore, *fakeFileDirectory, *database.ShareLink) {
		t.Helper()
		files := newFakeFileDirectory(activeFile("f1", "u1"))
		links := newFakeShareLinkStore()
		svc := newTestShareService(files, links)
		link, err := svc.CreateShareLink(ctx, "f1", "u1", days)
		if err != nil {
			t.Fatalf("failed to create link: %v", err)
		}
		return svc, links, files, link
	}

	t.Run("valid link returns file and increments count", func(t *testing.T) {
		svc, links, _, link := setup(t, 0)

		result, err := svc.ResolveShareLink(ctx, link.LinkID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.File.FileID != "f1" {
			t.Errorf("expected file f1, got %s", result.File.FileID)
		}
		if result.ShareLink.LinkID != link.LinkID {
			t.Errorf("expected link %s, got %s", link.LinkID, result.ShareLink.LinkID)
		}
		if got := links.accessCount(link.LinkID); got != 1 {
			t.Errorf("expected access count 1, got %d", got)
		}
	})

	t.Run("unknown link", func(t *testing.T) {
		svc, _, _, _ := setup(t, 0)
		if _, err := svc.ResolveShareLink(ctx, "nope"); !errors.Is(err, ErrShareLinkNotFound) {
			t.Errorf("expected ErrShareLinkNotFound, got %v", err)
		}
	})

	t.Run("valid just before expiry, gone just after", func(t *testing.T) {
		svc, links, _, link := setup(t, 7)

		svc.now = func() time.Time { return link.ExpiresAt.Add(-time.Second) }
		if _, err := svc.ResolveShareLink(ctx, link.LinkID); err != nil {
			t.Fatalf("link should still be valid before expiry: %v", err)
		}

		svc.now = func() time.Time { return link.ExpiresAt.Add(time.Second) }
		if _, err := svc.ResolveShareLink(ctx, link.LinkID); !errors.Is(err, ErrLinkGone) {
			t.Errorf("expected ErrLinkGone after expiry, got %v", err)
		}
		if got := links.accessCount(link.LinkID); got != 1 {
			t.Errorf("expired dereference must not count, got %d", got)
		}
	})

	t.Run("never-expires link stays valid far in the future", func(t *testing.T) {
		svc, _, _, link := setup(t, 0)
		svc.now = func() time.Time { return time.Now().AddDate(100, 0, 0) }

		if _, err := svc.ResolveShareLink(ctx, link.LinkID); err != nil {
			t.Errorf("never-expires link should not degrade: %v", err)
		}
	})

	t.Run("revoked link is gone", func(t *testing.T) {
		svc, _, _, link := setup(t, 0)
		if err := svc.RevokeShareLink(ctx, link.LinkID, "u1"); err != nil {
			t.Fatalf("failed to revoke: %v", err)
		}
		if _, err := svc.ResolveShareLink(ctx, link.LinkID); !errors.Is(err, ErrLinkGone) {
			t.Errorf("expected ErrLinkGone, got %v", err)
		}
	})

	t.Run("soft-deleted file invalidates a still-valid link", func(t *testing.T) {
		svc, links, files, link := setup(t, 7)
		files.mu.Lock()
		files.files["f1"].Status = database.FileStatusDeleted
		files.mu.Unlock()

		if _, err := svc.ResolveShareLink(ctx, link.LinkID); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
		if got := links.accessCount(link.LinkID); got != 0 {
			t.Errorf("rejected dereference must not count, got %d", got)
		}
	})
}

func TestResolveShareLinkConcurrent(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileDirectory(activeFile("f1", "u1"))
	links := newFakeShareLinkStore()
	svc := newTestShareService(files, links)

	link, err := svc.CreateShareLink(ctx, "f1", "u1", 0)
	if err != nil {
		t.Fatalf("failed to create link: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ResolveShareLink(ctx, link.LinkID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent resolve failed: %v", err)
	}
	if got := links.accessCount(link.LinkID); got != n {
		t.Errorf("expected access count %d, got %d (lost updates)", n, got)
	}
}

// --- RevokeShareLink ---

func TestRevokeShareLink(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ShareLinkService, *fakeShareLinkStore, *fakeFileDirectory, *database.ShareLink) {
		t.Helper()
		files := newFakeFileDirectory(activeFile("f1", "u1"))
		links := newFakeShareLinkStore()
		svc := newTestShareService(files, links)
		link, err := svc.CreateShareLink(ctx, "f1", "u1", 0)
		if err != nil {
			t.Fatalf("failed to create link: %v", err)
		}
		return svc, links, files, link
	}

	t.Run("owner can revoke", func(t *testing.T) {
		svc, links, _, link := setup(t)
		if err := svc.RevokeShareLink(ctx, link.LinkID, "u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored, _ := links.GetShareLinkByID(ctx, link.LinkID)
		if !stored.Revoked {
			t.Error("link should be revoked")
		}
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		svc, links, _, link := setup(t)
		for i := 0; i < 2; i++ {
			if err := svc.RevokeShareLink(ctx, link.LinkID, "u1"); err != nil {
				t.Fatalf("revoke attempt %d failed: %v", i+1, err)
			}
			stored, _ := links.GetShareLinkByID(ctx, link.LinkID)
			if !stored.Revoked {
				t.Errorf("link should stay revoked after attempt %d", i+1)
			}
		}
	})

	t.Run("non-owner cannot revoke", func(t *testing.T) {
		svc, links, _, link := setup(t)
		if err := svc.RevokeShareLink(ctx, link.LinkID, "intruder"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
		stored, _ := links.GetShareLinkByID(ctx, link.LinkID)
		if stored.Revoked {
			t.Error("unauthorized revoke must not mark the link")
		}
	})

	t.Run("unknown link", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		if err := svc.RevokeShareLink(ctx, "nope", "u1"); !errors.Is(err, ErrShareLinkNotFound) {
			t.Errorf("expected ErrShareLinkNotFound, got %v", err)
		}
	})

	t.Run("missing file reads as unauthorized", func(t *testing.T) {
		svc, _, files, link := setup(t)
		files.mu.Lock()
		delete(files.files, "f1")
		files.mu.Unlock()

		if err := svc.RevokeShareLink(ctx, link.LinkID, "u1"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("expired link can still be revoked", func(t *testing.T) {
		files := newFakeFileDirectory(activeFile("f1", "u1"))
		links := newFakeShareLinkStore()
		svc := newTestShareService(files, links)
		link, err := svc.CreateShareLink(ctx, "f1", "u1", 1)
		if err != nil {
			t.Fatalf("failed to create link: %v", err)
		}

		svc.now = func() time.Time { return link.ExpiresAt.AddDate(0, 0, 1) }
		if err := svc.RevokeShareLink(ctx, link.LinkID, "u1"); err != nil {
			t.Errorf("revoking an expired link should succeed: %v", err)
		}
	})
}

// --- Full lifecycle ---

func TestShareLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileDirectory(activeFile("f1", "u1"))
	links := newFakeShareLinkStore()
	svc := newTestShareService(files, links)

	link, err := svc.CreateShareLink(ctx, "f1", "u1", 7)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if link.AccessCount != 0 || link.Revoked || link.ExpiresAt == nil {
		t.Fatalf("unexpected initial state: %+v", link)
	}

	result, err := svc.ResolveShareLink(ctx, link.LinkID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if result.File.FileID != "f1" {
		t.Errorf("expected file f1, got %s", result.File.FileID)
	}
	if got := links.accessCount(link.LinkID); got != 1 {
		t.Errorf("expected access count 1, got %d", got)
	}

	if err := svc.RevokeShareLink(ctx, link.LinkID, "u1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.ResolveShareLink(ctx, link.LinkID); !errors.Is(err, ErrLinkGone) {
		t.Errorf("expected ErrLinkGone after revocation, got %v", err)
	}
}

// --- Expiry helpers ---

func TestExpiryDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("zero days means nil", func(t *testing.T) {
		if got := expiryDate(now, 0); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("adds calendar days", func(t *testing.T) {
		tests := []struct {
			days int
			want time.Time
		}{
			{1, time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)},
			{7, time.Date(2026, 3, 22, 10, 0, 0, 0, time.UTC)},
			{30, time.Date(2026, 4, 14, 10, 0, 0, 0, time.UTC)},
		}
		for _, tt := range tests {
			got := expiryDate(now, tt.days)
			if got == nil || !got.Equal(tt.want) {
				t.Errorf("expiryDate(%d): expected %v, got %v", tt.days, tt.want, got)
			}
		}
	})
}

func TestTTLSeconds(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("nil expiry means nil ttl", func(t *testing.T) {
		if got := ttlSeconds(now, nil); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("future expiry yields whole seconds", func(t *testing.T) {
		exp := now.Add(90 * time.Minute)
		got := ttlSeconds(now, &exp)
		if got == nil || *got != 5400 {
			t.Errorf("expected 5400, got %v", got)
		}
	})

	t.Run("past or immediate expiry omits the hint", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Second, -time.Hour} {
			exp := now.Add(d)
			if got := ttlSeconds(now, &exp); got != nil {
				t.Errorf("offset %v: expected nil, got %v", d, *got)
			}
		}
	})
}
