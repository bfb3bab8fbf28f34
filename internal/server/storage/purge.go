package storage

import (
	"context"
	"log/slog"
	"time"
)

// ShareLinkPurger removes share-link rows whose expiry has passed.
type ShareLinkPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeService periodically hard-deletes expired share links. This is
// the storage-level TTL mechanism: expiry itself is enforced logically
// on every dereference, so the purge only reclaims dead rows.
type PurgeService struct {
	purger   ShareLinkPurger
	interval time.Duration
	done     chan struct{}
}

// NewPurgeService creates a new purge service.
func NewPurgeService(purger ShareLinkPurger, interval time.Duration) *PurgeService {
	return &PurgeService{
		purger:   purger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the purge loop in a background goroutine.
func (ps *PurgeService) Start(ctx context.Context) {
	slog.Info("share link purge service started", "interval", ps.interval)

	go func() {
		ticker := time.NewTicker(ps.interval)
		defer ticker.Stop()

		// Run once immediately on start
		ps.runPurge(ctx)

		for {
			select {
			case <-ticker.C:
				ps.runPurge(ctx)
			case <-ctx.Done():
				slog.Info("purge service stopping")
				close(ps.done)
				return
			}
		}
	}()
}

// Wait blocks until the purge service has fully stopped.
func (ps *PurgeService) Wait() {
	<-ps.done
}

func (ps *PurgeService) runPurge(ctx context.Context) {
	purged, err := ps.purger.PurgeExpired(ctx)
	if err != nil {
		slog.Error("failed to purge expired share links", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("purged expired share links", "count", purged)
	}
}
