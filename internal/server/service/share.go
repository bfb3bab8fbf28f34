package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloudpix/internal/server/database"

	"github.com/google/uuid"
)

// Sentinel errors for the share-link engine.
var (
	ErrShareLinkNotFound = errors.New("share link not found")
	ErrUnauthorized      = errors.New("unauthorized access to file")
	ErrFileNotShareable  = errors.New("cannot share deleted file")
	ErrLinkGone          = errors.New("share link is expired or revoked")
	ErrInvalidExpiration = errors.New("expiration days must not be negative")
)

// FileDirectory is the slice of the file store the share-link engine
// consumes.
type FileDirectory interface {
	GetFileByID(ctx context.Context, fileID string) (*database.File, error)
}

// ShareLinkStore persists share-link records. IncrementAccessCount
// must be atomic at the store level so concurrent dereferences never
// lose updates; RevokeShareLink must be idempotent.
type ShareLinkStore interface {
	CreateShareLink(ctx context.Context, link *database.ShareLink) error
	GetShareLinkByID(ctx context.Context, linkID string) (*database.ShareLink, error)
	IncrementAccessCount(ctx context.Context, linkID string) error
	RevokeShareLink(ctx context.Context, linkID string) error
}

// ShareLinkResolution is the result of dereferencing a valid link.
type ShareLinkResolution struct {
	File      *database.File      `json:"file"`
	ShareLink *database.ShareLink `json:"shareLink"`
}

// ShareLinkService manages the share-link lifecycle: creation with
// ownership checks, dereference with validity checks, and revocation.
// It holds no state of its own between calls.
type ShareLinkService struct {
	files  FileDirectory
	links  ShareLinkStore
	events Events
	now    func() time.Time
}

// NewShareLinkService creates a new share-link service. A nil events
// hook is replaced with a no-op.
func NewShareLinkService(files FileDirectory, links ShareLinkStore, events Events) *ShareLinkService {
	if events == nil {
		events = NopEvents{}
	}
	return &ShareLinkService{
		files:  files,
		links:  links,
		events: events,
		now:    time.Now,
	}
}

// CreateShareLink issues a new link for a file the requesting user
// owns. expirationDays of zero means the link never expires; negative
// values are rejected before any store access.
func (s *ShareLinkService) CreateShareLink(ctx context.Context, fileID, userID string, expirationDays int) (*database.ShareLink, error) {
	if expirationDays < 0 {
		return nil, ErrInvalidExpiration
	}

	file, err := s.files.GetFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if file.UserID != userID {
		return nil, ErrUnauthorized
	}
	if !file.IsActive() {
		return nil, ErrFileNotShareable
	}

	now := s.now().UTC()
	expiresAt := expiryDate(now, expirationDays)

	link := &database.ShareLink{
		LinkID:      uuid.NewString(),
		FileID:      fileID,
		ExpiresAt:   expiresAt,
		AccessCount: 0,
		CreatedAt:   now,
		Revoked:     false,
		TTLSeconds:  ttlSeconds(now, expiresAt),
	}

	if err := s.links.CreateShareLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to persist share link: %w", err)
	}

	s.events.ShareLinkCreated(userID, fileID, link.LinkID)
	slog.Info("share link created",
		"link_id", link.LinkID,
		"file_id", fileID,
		"user_id", userID,
		"expiration_days", expirationDays,
	)
	return link, nil
}

// ResolveShareLink dereferences a link to its file. A link that is
// revoked or past its expiry is rejected; so is a link whose file has
// since been deleted, even if the link itself is still valid. Each
// successful dereference bumps the access counter exactly once.
func (s *ShareLinkService) ResolveShareLink(ctx context.Context, linkID string) (*ShareLinkResolution, error) {
	link, err := s.links.GetShareLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, database.ErrShareLinkNotFound) {
			return nil, ErrShareLinkNotFound
		}
		return nil, err
	}

	if !link.IsValid(s.now()) {
		return nil, ErrLinkGone
	}

	file, err := s.files.GetFileByID(ctx, link.FileID)
	if err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if !file.IsActive() {
		// Owner deleted the file after the link was issued.
		return nil, ErrFileNotFound
	}

	if err := s.links.IncrementAccessCount(ctx, linkID); err != nil {
		return nil, fmt.Errorf("failed to record link access: %w", err)
	}

	s.events.ShareLinkAccessed(linkID, link.FileID)
	return &ShareLinkResolution{File: file, ShareLink: link}, nil
}

// RevokeShareLink marks a link revoked on behalf of the file's owner.
// Validity is not checked: an expired or already-revoked link may be
// revoked again without error.
func (s *ShareLinkService) RevokeShareLink(ctx context.Context, linkID, userID string) error {
	link, err := s.links.GetShareLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, database.ErrShareLinkNotFound) {
			return ErrShareLinkNotFound
		}
		return err
	}

	// Authorization is keyed off file ownership. A missing file means
	// ownership cannot be verified, which reads as unauthorized.
	file, err := s.files.GetFileByID(ctx, link.FileID)
	if err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if file.UserID != userID {
		return ErrUnauthorized
	}

	if err := s.links.RevokeShareLink(ctx, linkID); err != nil {
		return fmt.Errorf("failed to revoke share link: %w", err)
	}

	s.events.ShareLinkRevoked(userID, linkID, link.FileID)
	slog.Info("share link revoked", "link_id", linkID, "user_id", userID)
	return nil
}

// expiryDate adds whole calendar days to now, letting the calendar
// normalize month boundaries. Zero days means the link never expires.
func expiryDate(now time.Time, days int) *time.Time {
	if days == 0 {
		return nil
	}
	t := now.AddDate(0, 0, days)
	return &t
}

// ttlSeconds computes the purge hint handed to the store: the whole
// seconds until expiry, omitted when no expiry is set or the remainder
// is not positive.
func ttlSeconds(now time.Time, expiresAt *time.Time) *int64 {
	if expiresAt == nil {
		return nil
	}
	secs := int64(expiresAt.Sub(now).Seconds())
	if secs <= 0 {
		return nil
	}
	return &secs
}
