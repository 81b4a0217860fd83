package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/propdesk/internal/cache"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/lock"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidField = errors.New("invalid field name")
	ErrInvalidValue = errors.New("invalid filter value")
	ErrInvalidPatch = errors.New("invalid patch")

	// ErrUnchanged may be returned by a mutate func to skip the write.
	ErrUnchanged = errors.New("record unchanged")
)

// timeLayout is fixed width so that created_date sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store owns the shared pieces every Collection needs: the database, the
// query cache, and the per-record locks used for read-modify-write.
type Store struct {
	db     *sql.DB
	cache  cache.QueryCache
	locks  *lock.IDLocker
	logger *slog.Logger
	now    func() time.Time
}

func New(db *sql.DB, qc cache.QueryCache, logger *slog.Logger) *Store {
	if qc == nil {
		qc = cache.Nop{}
	}
	return &Store{
		db:     db,
		cache:  qc,
		locks:  lock.NewIDLocker(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the timestamp source. Tests use it to pin created_date.
func (s *Store) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

// Tx is a database transaction that remembers which kinds it modified so the
// query cache can be invalidated once it commits.
type Tx struct {
	tx      *sql.Tx
	touched map[domain.Kind]bool
}

func (t *Tx) touch(kind domain.Kind) {
	t.touched[kind] = true
}

// InTx runs fn in one transaction while holding the record locks for lockIDs.
// Nothing is written if fn returns an error.
func (s *Store) InTx(ctx context.Context, lockIDs []string, fn func(tx *Tx) error) error {
	return s.locks.WithLocks(lockIDs, func() error {
		sqlTx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		tx := &Tx{tx: sqlTx, touched: make(map[domain.Kind]bool)}

		if err := fn(tx); err != nil {
			if rerr := sqlTx.Rollback(); rerr != nil {
				s.logger.Error("failed to roll back transaction", "error", rerr)
			}
			return err
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		for kind := range tx.touched {
			s.invalidate(ctx, kind)
		}
		return nil
	})
}

func (s *Store) invalidate(ctx context.Context, kind domain.Kind) {
	if err := s.cache.Invalidate(ctx, string(kind)); err != nil {
		s.logger.Error("failed to invalidate query cache", "kind", kind, "error", err)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
