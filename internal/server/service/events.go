package service

// Events receives notifications after service operations complete.
// Implementations run off the critical path: they may log or count,
// but they cannot fail an operation or change its result.
type Events interface {
	ShareLinkCreated(userID, fileID, linkID string)
	ShareLinkAccessed(linkID, fileID string)
	ShareLinkRevoked(userID, linkID, fileID string)
	FileUploaded(userID, fileID string, size int64)
	FileDeleted(userID, fileID string)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) ShareLinkCreated(userID, fileID, linkID string) {}
func (NopEvents) ShareLinkAccessed(linkID, fileID string)        {}
func (NopEvents) ShareLinkRevoked(userID, linkID, fileID string) {}
func (NopEvents) FileUploaded(userID, fileID string, size int64) {}
func (NopEvents) FileDeleted(userID, fileID string)              {}
