package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cloudpix/internal/server/database"
	"cloudpix/internal/server/storage"

	"github.com/google/uuid"
)

// Sentinel errors for the file service.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile    = errors.New("no file provided")
	ErrBlockedType  = errors.New("file type is not allowed")
)

// blockedExtensions are executable file types rejected at upload.
var blockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true,
	".scr": true, ".pif": true, ".vbs": true, ".vbe": true,
	".wsf": true, ".wsh": true, ".msi": true, ".hta": true,
	".lnk": true, ".cpl": true, ".inf": true, ".reg": true,
}

// FileStore is the slice of the metadata store the file service
// consumes.
type FileStore interface {
	CreateFile(ctx context.Context, file *database.File) error
	GetFileByID(ctx context.Context, fileID string) (*database.File, error)
	GetFilesByUserID(ctx context.Context, userID string) ([]*database.File, error)
	SoftDeleteFile(ctx context.Context, fileID string) error
	GetStats(ctx context.Context) (*database.Stats, error)
}

// FileService owns upload, listing, retrieval and soft deletion of
// user files. Blob bytes live in the BlobStore; metadata lives in the
// FileStore.
type FileService struct {
	repo        FileStore
	blobs       storage.BlobStore
	events      Events
	maxFileSize int64
}

// NewFileService creates a new file service. A nil events hook is
// replaced with a no-op.
func NewFileService(repo FileStore, blobs storage.BlobStore, events Events, maxFileSize int64) *FileService {
	if events == nil {
		events = NopEvents{}
	}
	return &FileService{
		repo:        repo,
		blobs:       blobs,
		events:      events,
		maxFileSize: maxFileSize,
	}
}

// UploadFile validates the upload, stores the blob, and records the
// metadata. The blob is removed again if the metadata insert fails so
// no orphaned bytes are left behind.
func (s *FileService) UploadFile(ctx context.Context, userID, fileName, contentType string, size int64, data io.Reader) (*database.File, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > s.maxFileSize {
		return nil, ErrFileTooLarge
	}

	fileName = sanitizeFilename(fileName)
	if blockedExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return nil, ErrBlockedType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileID := uuid.NewString()

	// The blob key is the file id; the download endpoint and the S3
	// object path both address blobs by it.
	blobURL, written, err := s.blobs.Put(ctx, fileID, data, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	file := &database.File{
		FileID:      fileID,
		UserID:      userID,
		FileName:    fileName,
		BlobKey:     fileID,
		BlobURL:     blobURL,
		FileSize:    written,
		ContentType: contentType,
		UploadDate:  time.Now().UTC(),
		Status:      database.FileStatusActive,
	}

	if err := s.repo.CreateFile(ctx, file); err != nil {
		// Clean up stored blob on DB failure
		if delErr := s.blobs.Delete(ctx, fileID); delErr != nil {
			slog.Error("failed to clean up blob after insert failure",
				"file_id", fileID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	s.events.FileUploaded(userID, fileID, written)
	slog.Info("file uploaded",
		"file_id", fileID,
		"user_id", userID,
		"file_name", fileName,
		"size", written,
	)
	return file, nil
}

// GetUserFiles returns the user's active files.
func (s *FileService) GetUserFiles(ctx context.Context, userID string) ([]*database.File, error) {
	files, err := s.repo.GetFilesByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []*database.File{}
	}
	return files, nil
}

// GetFileByID returns a file the user owns. Deleted files read as not
// found.
func (s *FileService) GetFileByID(ctx context.Context, fileID, userID string) (*database.File, error) {
	file, err := s.repo.GetFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if !file.IsActive() {
		return nil, ErrFileNotFound
	}
	if file.UserID != userID {
		return nil, ErrUnauthorized
	}
	return file, nil
}

// DeleteFile soft-deletes a file the user owns. The blob stays in
// place; outstanding share links stop resolving immediately.
func (s *FileService) DeleteFile(ctx context.Context, fileID, userID string) error {
	if _, err := s.GetFileByID(ctx, fileID, userID); err != nil {
		return err
	}
	if err := s.repo.SoftDeleteFile(ctx, fileID); err != nil {
		if errors.Is(err, database.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	s.events.FileDeleted(userID, fileID)
	slog.Info("file deleted", "file_id", fileID, "user_id", userID)
	return nil
}

// DownloadFile opens the blob for a file the user owns.
func (s *FileService) DownloadFile(ctx context.Context, fileID, userID string) (*database.File, io.ReadCloser, error) {
	file, err := s.GetFileByID(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, file.BlobKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return file, rc, nil
}

// OpenBlob opens the blob for an already-authorized file record, e.g.
// one reached through a valid share link.
func (s *FileService) OpenBlob(ctx context.Context, file *database.File) (io.ReadCloser, error) {
	rc, err := s.blobs.Get(ctx, file.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return rc, nil
}

// GetStats returns aggregate server statistics.
func (s *FileService) GetStats(ctx context.Context) (*database.Stats, error) {
	return s.repo.GetStats(ctx)
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes before calling filepath.Base,
	// which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || name == "/" {
		name = "upload.bin"
	}
	return name
}
