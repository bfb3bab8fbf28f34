// Package telemetry implements the service-layer event hooks with
// Prometheus counters and structured log lines.
package telemetry

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shareLinksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudpix_share_links_created_total",
		Help: "Total number of share links created",
	})
	shareLinkAccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudpix_share_link_accesses_total",
		Help: "Total number of successful share link dereferences",
	})
	shareLinksRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudpix_share_links_revoked_total",
		Help: "Total number of share links revoked",
	})
	filesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudpix_files_uploaded_total",
		Help: "Total number of files uploaded",
	})
	filesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudpix_files_deleted_total",
		Help: "Total number of files soft-deleted",
	})
	uploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudpix_upload_bytes_total",
		Help: "Total bytes accepted through uploads",
	})
)

// Recorder implements service.Events.
type Recorder struct{}

// NewRecorder creates a telemetry recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (*Recorder) ShareLinkCreated(userID, fileID, linkID string) {
	shareLinksCreated.Inc()
	slog.Info("event: share_link_created",
		"user_id", userID, "file_id", fileID, "link_id", linkID)
}

func (*Recorder) ShareLinkAccessed(linkID, fileID string) {
	shareLinkAccesses.Inc()
	slog.Info("event: share_link_accessed", "link_id", linkID, "file_id", fileID)
}

func (*Recorder) ShareLinkRevoked(userID, linkID, fileID string) {
	shareLinksRevoked.Inc()
	slog.Info("event: share_link_revoked",
		"user_id", userID, "link_id", linkID, "file_id", fileID)
}

func (*Recorder) FileUploaded(userID, fileID string, size int64) {
	filesUploaded.Inc()
	uploadBytes.Add(float64(size))
	slog.Info("event: file_uploaded", "user_id", userID, "file_id", fileID, "size", size)
}

func (*Recorder) FileDeleted(userID, fileID string) {
	filesDeleted.Inc()
	slog.Info("event: file_deleted", "user_id", userID, "file_id", fileID)
}
