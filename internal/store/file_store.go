package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FileRecord is the metadata kept for an uploaded file.
type FileRecord struct {
	StorageKey  string    `json:"storage_key"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedDate time.Time `json:"created_date"`
}

type FileIndex struct {
	db *sql.DB
}

func NewFileIndex(db *sql.DB) *FileIndex {
	return &FileIndex{db: db}
}

func (s *FileIndex) Create(ctx context.Context, f *FileRecord) error {
	if f.CreatedDate.IsZero() {
		f.CreatedDate = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (storage_key, name, mime_type, size, uploaded_by, created_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.StorageKey, f.Name, f.MimeType, f.Size, f.UploadedBy, formatTime(f.CreatedDate))
	if err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}
	return nil
}

func (s *FileIndex) Get(ctx context.Context, key string) (*FileRecord, error) {
	f := &FileRecord{}
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT storage_key, name, mime_type, size, uploaded_by, created_date FROM files WHERE storage_key = ?
	`, key).Scan(&f.StorageKey, &f.Name, &f.MimeType, &f.Size, &f.UploadedBy, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if f.CreatedDate, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("failed to parse file date: %w", err)
	}
	return f, nil
}

func (s *FileIndex) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}
