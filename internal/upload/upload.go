// Package upload stores user files and hands back their public URLs.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/propdesk/internal/filestore"
	"github.com/vbonduro/propdesk/internal/notify"
	"github.com/vbonduro/propdesk/internal/store"
)

// fileIndex is the subset of store.FileIndex that Service requires.
type fileIndex interface {
	Create(ctx context.Context, f *store.FileRecord) error
	Get(ctx context.Context, key string) (*store.FileRecord, error)
}

type Service struct {
	files       filestore.FileStore
	index       fileIndex
	notifier    notify.Notifier
	publicURL   string
	concurrency int
	logger      *slog.Logger
}

func NewService(files filestore.FileStore, index fileIndex, notifier notify.Notifier, publicURL string, concurrency int, logger *slog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		files:       files,
		index:       index,
		notifier:    notifier,
		publicURL:   strings.TrimRight(publicURL, "/"),
		concurrency: concurrency,
		logger:      logger,
	}
}

type Result struct {
	FileURL  string `json:"file_url"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// File is one pending upload. Open is called once, from the uploading goroutine.
type File struct {
	Name     string
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// UploadFile stores one file and records its metadata.
func (s *Service) UploadFile(ctx context.Context, uploadedBy, name, mimeType string, r io.Reader) (*Result, error) {
	key, size, err := s.files.Save(ctx, name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	rec := &store.FileRecord{StorageKey: key, Name: name, MimeType: mimeType, Size: size, UploadedBy: uploadedBy}
	if err := s.index.Create(ctx, rec); err != nil {
		if derr := s.files.Delete(ctx, key); derr != nil {
			s.logger.Error("failed to roll back stored file", "storage_key", key, "error", derr)
		}
		return nil, fmt.Errorf("failed to record file: %w", err)
	}

	s.logger.Debug("file uploaded", "storage_key", key, "bytes", size)
	return &Result{
		FileURL:  s.publicURL + "/files/" + key,
		Key:      key,
		Name:     name,
		MimeType: mimeType,
		Size:     size,
	}, nil
}

// UploadAll uploads files in parallel. Successful uploads are returned in
// input order; failed ones are left out, listed in failures, and reported
// through the notifier. A failing or panicking upload never aborts the others.
func (s *Service) UploadAll(ctx context.Context, uploadedBy string, files []File) ([]Result, []Failure) {
	results := make([]*Result, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, f := range files {
		g.Go(func() error {
			results[i], errs[i] = s.uploadOne(ctx, uploadedBy, f)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := make([]Result, 0, len(files))
	failures := make([]Failure, 0)
	for i, f := range files {
		if errs[i] != nil {
			s.logger.Error("upload failed", "name", f.Name, "error", errs[i])
			failures = append(failures, Failure{Name: f.Name, Error: errs[i].Error()})
			continue
		}
		succeeded = append(succeeded, *results[i])
	}

	if len(failures) > 0 {
		s.reportFailures(ctx, uploadedBy, failures)
	}
	return succeeded, failures
}

func (s *Service) uploadOne(ctx context.Context, uploadedBy string, f File) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("upload panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.logger.Error("failed to close upload", "name", f.Name, "error", cerr)
		}
	}()
	return s.UploadFile(ctx, uploadedBy, f.Name, f.MimeType, rc)
}

func (s *Service) reportFailures(ctx context.Context, uploadedBy string, failures []Failure) {
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Name)
	}
	msg := notify.Message{
		Subject: fmt.Sprintf("%d upload(s) failed", len(failures)),
		Body:    "Could not upload: " + strings.Join(names, ", "),
	}
	if uploadedBy != "" {
		msg.To = []string{uploadedBy}
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error("failed to report upload failures", "error", err)
	}
}

// Open returns the stored file and its metadata.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, *store.FileRecord, error) {
	rec, err := s.index.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return rc, rec, nil
}
