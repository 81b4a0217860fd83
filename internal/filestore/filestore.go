package filestore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("file not found")

// FileStore keeps uploaded file contents. Keys are chosen by the store.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (storageKey string, size int64, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
