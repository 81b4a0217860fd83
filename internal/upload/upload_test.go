package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propdesk/internal/filestore"
	"github.com/vbonduro/propdesk/internal/logging"
	"github.com/vbonduro/propdesk/internal/notify"
	"github.com/vbonduro/propdesk/internal/store"
)

// memFileStore is a minimal in-memory filestore.FileStore for tests.
type memFileStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	counter int
	failOn  string
}

func newMemFileStore() *memFileStore {
	return &memFileStore{data: make(map[string][]byte)}
}

func (m *memFileStore) Save(_ context.Context, name string, r io.Reader) (string, int64, error) {
	if m.failOn != "" && name == m.failOn {
		return "", 0, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("%d_%s", m.counter, name)
	m.data[key] = data
	return key, int64(len(data)), nil
}

func (m *memFileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, filestore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memFileStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type memIndex struct {
	mu   sync.Mutex
	recs map[string]*store.FileRecord
	err  error
}

func newMemIndex() *memIndex { return &memIndex{recs: make(map[string]*store.FileRecord)} }

func (m *memIndex) Create(_ context.Context, f *store.FileRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[f.StorageKey] = f
	return nil
}

func (m *memIndex) Get(_ context.Context, key string) (*store.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, msg)
	return nil
}

func file(name, content string) File {
	return File{
		Name:     name,
		MimeType: "text/plain",
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func TestUploadFile(t *testing.T) {
	svc := NewService(newMemFileStore(), newMemIndex(), &recordingNotifier{}, "https://desk.example.com/", 2, logging.Discard())

	res, err := svc.UploadFile(context.Background(), "a@example.com", "lease.pdf", "application/pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "https://desk.example.com/files/1_lease.pdf", res.FileURL)
	assert.Equal(t, int64(3), res.Size)

	rc, rec, err := svc.Open(context.Background(), res.Key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "application/pdf", rec.MimeType)
	assert.Equal(t, "a@example.com", rec.UploadedBy)
}

func TestUploadFileRollsBackOnIndexError(t *testing.T) {
	files := newMemFileStore()
	idx := newMemIndex()
	idx.err = errors.New("db locked")
	svc := NewService(files, idx, &recordingNotifier{}, "", 1, logging.Discard())

	_, err := svc.UploadFile(context.Background(), "", "x.txt", "text/plain", strings.NewReader("x"))
	assert.Error(t, err)
	assert.Empty(t, files.data)
}

func TestUploadAllFiltersFailures(t *testing.T) {
	files := newMemFileStore()
	files.failOn = "b.txt"
	notifier := &recordingNotifier{}
	svc := NewService(files, newMemIndex(), notifier, "http://x", 3, logging.Discard())

	results, failures := svc.UploadAll(context.Background(), "a@example.com", []File{
		file("a.txt", "a"),
		file("b.txt", "b"),
		file("c.txt", "c"),
	})

	require.Len(t, results, 2)
	assert.Equal(t, "a.txt", results[0].Name)
	assert.Equal(t, "c.txt", results[1].Name)
	for _, r := range results {
		assert.NotEmpty(t, r.FileURL)
	}

	require.Len(t, failures, 1)
	assert.Equal(t, "b.txt", failures[0].Name)
	assert.Contains(t, failures[0].Error, "disk full")

	require.Len(t, notifier.got, 1)
	assert.Equal(t, "1 upload(s) failed", notifier.got[0].Subject)
	assert.Equal(t, []string{"a@example.com"}, notifier.got[0].To)
	assert.Contains(t, notifier.got[0].Body, "b.txt")
}

func TestUploadAllSurvivesPanicAndOpenError(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(newMemFileStore(), newMemIndex(), notifier, "http://x", 2, logging.Discard())

	results, failures := svc.UploadAll(context.Background(), "", []File{
		{Name: "panics.txt", Open: func() (io.ReadCloser, error) { panic("boom") }},
		{Name: "unreadable.txt", Open: func() (io.ReadCloser, error) { return nil, errors.New("gone") }},
		file("ok.txt", "ok"),
	})

	require.Len(t, results, 1)
	assert.Equal(t, "ok.txt", results[0].Name)
	assert.Len(t, failures, 2)
	require.Len(t, notifier.got, 1)
	assert.Nil(t, notifier.got[0].To)
}

func TestUploadAllNoFailuresNoNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewService(newMemFileStore(), newMemIndex(), notifier, "http://x", 0, logging.Discard())

	results, failures := svc.UploadAll(context.Background(), "", []File{file("a.txt", "a")})
	assert.Len(t, results, 1)
	assert.Empty(t, failures)
	assert.Empty(t, notifier.got)

	results, failures = svc.UploadAll(context.Background(), "", nil)
	assert.Empty(t, results)
	assert.Empty(t, failures)
}

func TestUploadAllCancelledContext(t *testing.T) {
	svc := NewService(newMemFileStore(), newMemIndex(), &recordingNotifier{}, "http://x", 1, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, failures := svc.UploadAll(ctx, "", []File{file("a.txt", "a")})
	assert.Empty(t, results)
	assert.Len(t, failures, 1)
}
