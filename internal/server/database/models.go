package database

import "time"

// User is a registered account.
type User struct {
	UserID       string     `json:"userId"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// File statuses. A file is never hard-deleted through the API;
// deletion flips the status flag and leaves the record in place.
const (
	FileStatusActive  = "active"
	FileStatusDeleted = "deleted"
)

// File is the metadata record for an uploaded blob.
type File struct {
	FileID      string    `json:"fileId"`
	UserID      string    `json:"userId"`
	FileName    string    `json:"fileName"`
	BlobKey     string    `json:"-"`
	BlobURL     string    `json:"blobUrl"`
	FileSize    int64     `json:"fileSize"`
	ContentType string    `json:"contentType"`
	UploadDate  time.Time `json:"uploadDate"`
	Status      string    `json:"status"`
}

// IsActive reports whether the file can be read or shared.
func (f *File) IsActive() bool {
	return f.Status == FileStatusActive
}

// ShareLink grants anonymous, revocable access to one file.
// ExpiresAt is nil when the link never expires; TTLSeconds mirrors the
// remaining lifetime at creation as a purge hint and is nil when no
// expiry is set (or the remainder was not positive).
type ShareLink struct {
	LinkID      string     `json:"linkId"`
	FileID      string     `json:"fileId"`
	ExpiresAt   *time.Time `json:"expiryDate,omitempty"`
	AccessCount int        `json:"accessCount"`
	CreatedAt   time.Time  `json:"createdDate"`
	Revoked     bool       `json:"isRevoked"`
	TTLSeconds  *int64     `json:"ttl,omitempty"`
}

// IsValid reports whether the link may still be dereferenced at the
// given instant: not revoked, and either no expiry or not yet past it.
func (l *ShareLink) IsValid(now time.Time) bool {
	if l.Revoked {
		return false
	}
	if l.ExpiresAt == nil {
		return true
	}
	return !now.After(*l.ExpiresAt)
}

// Stats holds aggregate server statistics.
type Stats struct {
	TotalFiles        int64
	ActiveFiles       int64
	TotalShareLinks   int64
	TotalLinkAccesses int64
	StorageUsed       int64
}
