package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrFileNotFound = errors.New("file not found")

const fileColumns = `file_id, user_id, file_name, blob_key, blob_url,
	file_size, content_type, upload_date, status`

// FileRepository provides CRUD operations for file metadata records.
type FileRepository struct {
	db *DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *DB) *FileRepository {
	return &FileRepository{db: db}
}

// CreateFile inserts a new file metadata record.
func (r *FileRepository) CreateFile(ctx context.Context, file *File) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO files (
			file_id, user_id, file_name, blob_key, blob_url,
			file_size, content_type, upload_date, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		file.FileID,
		file.UserID,
		file.FileName,
		file.BlobKey,
		file.BlobURL,
		file.FileSize,
		file.ContentType,
		file.UploadDate,
		file.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}
	return nil
}

// GetFileByID retrieves a file record by id, regardless of status.
func (r *FileRepository) GetFileByID(ctx context.Context, fileID string) (*File, error) {
	file := &File{}
	err := r.db.Pool.QueryRow(ctx,
		"SELECT "+fileColumns+" FROM files WHERE file_id = $1", fileID,
	).Scan(
		&file.FileID,
		&file.UserID,
		&file.FileName,
		&file.BlobKey,
		&file.BlobURL,
		&file.FileSize,
		&file.ContentType,
		&file.UploadDate,
		&file.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// GetFilesByUserID returns all active files owned by a user.
func (r *FileRepository) GetFilesByUserID(ctx context.Context, userID string) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+fileColumns+" FROM files WHERE user_id = $1 AND status = $2 ORDER BY upload_date DESC",
		userID, FileStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		file := &File{}
		if err := rows.Scan(
			&file.FileID,
			&file.UserID,
			&file.FileName,
			&file.BlobKey,
			&file.BlobURL,
			&file.FileSize,
			&file.ContentType,
			&file.UploadDate,
			&file.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// SoftDeleteFile flips the file's status to deleted. The record and
// its blob stay in place; only sharing and listing are cut off.
func (r *FileRepository) SoftDeleteFile(ctx context.Context, fileID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE files SET status = $2 WHERE file_id = $1",
		fileID, FileStatusDeleted,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// GetStats returns aggregate server statistics.
func (r *FileRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(SUM(file_size) FILTER (WHERE status = 'active'), 0)
		FROM files
	`).Scan(
		&stats.TotalFiles,
		&stats.ActiveFiles,
		&stats.StorageUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(access_count), 0) FROM share_links
	`).Scan(
		&stats.TotalShareLinks,
		&stats.TotalLinkAccesses,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get share link stats: %w", err)
	}
	return stats, nil
}
