package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrShareLinkNotFound = errors.New("share link not found")

const shareLinkColumns = `link_id, file_id, expires_at, access_count,
	created_at, is_revoked, ttl_seconds`

// ShareLinkRepository persists share-link records. Mutations are
// limited to the atomic access-count increment and the idempotent
// revoke; expired rows are removed only by PurgeExpired.
type ShareLinkRepository struct {
	db *DB
}

// NewShareLinkRepository creates a new ShareLinkRepository.
func NewShareLinkRepository(db *DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

// CreateShareLink inserts a new share-link record. A duplicate link id
// violates the primary key and surfaces as an error.
func (r *ShareLinkRepository) CreateShareLink(ctx context.Context, link *ShareLink) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO share_links (
			link_id, file_id, expires_at, access_count,
			created_at, is_revoked, ttl_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		link.LinkID,
		link.FileID,
		link.ExpiresAt,
		link.AccessCount,
		link.CreatedAt,
		link.Revoked,
		link.TTLSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to create share link: %w", err)
	}
	return nil
}

// GetShareLinkByID retrieves a share link by id.
func (r *ShareLinkRepository) GetShareLinkByID(ctx context.Context, linkID string) (*ShareLink, error) {
	link := &ShareLink{}
	err := r.db.Pool.QueryRow(ctx,
		"SELECT "+shareLinkColumns+" FROM share_links WHERE link_id = $1", linkID,
	).Scan(
		&link.LinkID,
		&link.FileID,
		&link.ExpiresAt,
		&link.AccessCount,
		&link.CreatedAt,
		&link.Revoked,
		&link.TTLSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShareLinkNotFound
		}
		return nil, fmt.Errorf("failed to get share link: %w", err)
	}
	return link, nil
}

// IncrementAccessCount atomically increments the access counter.
// The increment happens in SQL so concurrent dereferences never lose
// updates.
func (r *ShareLinkRepository) IncrementAccessCount(ctx context.Context, linkID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE share_links SET access_count = access_count + 1 WHERE link_id = $1", linkID)
	if err != nil {
		return fmt.Errorf("failed to increment access count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShareLinkNotFound
	}
	return nil
}

// RevokeShareLink marks a link revoked. Revoking an already-revoked
// link is a no-op, not an error.
func (r *ShareLinkRepository) RevokeShareLink(ctx context.Context, linkID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE share_links SET is_revoked = TRUE WHERE link_id = $1", linkID)
	if err != nil {
		return fmt.Errorf("failed to revoke share link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShareLinkNotFound
	}
	return nil
}

// PurgeExpired hard-deletes links whose expiry has passed. Revoked but
// unexpired links are kept; revocation is a logical state, not a
// storage deletion.
func (r *ShareLinkRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM share_links WHERE expires_at IS NOT NULL AND expires_at < NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired share links: %w", err)
	}
	return tag.RowsAffected(), nil
}
