package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vbonduro/propdesk/internal/cache"
	"github.com/vbonduro/propdesk/internal/domain"
)

// entity is satisfied by *T for every domain type T.
type entity[T any] interface {
	*T
	domain.Entity
}

// protectedFields cannot be changed through Update.
var protectedFields = map[string]bool{
	"id":           true,
	"created_date": true,
	"updated_date": true,
	"created_by":   true,
}

// Collection is typed CRUD access to the records of one kind.
type Collection[T any, P entity[T]] struct {
	store *Store
	kind  domain.Kind
	// managed fields are maintained by a domain service and cannot be
	// written through the generic record API.
	managed map[string]bool
}

func NewCollection[T any, P entity[T]](s *Store) *Collection[T, P] {
	var zero T
	return &Collection[T, P]{store: s, kind: P(&zero).Kind()}
}

func (c *Collection[T, P]) Kind() domain.Kind { return c.kind }

// Manage marks fields that only the owning service may write.
func (c *Collection[T, P]) Manage(fields ...string) *Collection[T, P] {
	if c.managed == nil {
		c.managed = make(map[string]bool, len(fields))
	}
	for _, f := range fields {
		c.managed[f] = true
	}
	return c
}

// List returns up to limit records ordered by sort.
func (c *Collection[T, P]) List(ctx context.Context, sort string, limit int) ([]*T, error) {
	return c.Filter(ctx, Query{Sort: sort, Limit: limit})
}

// Filter returns the records matching q. Results are served from the query
// cache when possible.
func (c *Collection[T, P]) Filter(ctx context.Context, q Query) ([]*T, error) {
	key := q.cacheKey()
	if cached, err := c.store.cache.Get(ctx, string(c.kind), key); err == nil {
		var out []*T
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
		c.store.logger.Warn("discarding unreadable cache entry", "kind", c.kind)
	} else if !errors.Is(err, cache.ErrMiss) {
		c.store.logger.Warn("query cache read failed", "kind", c.kind, "error", err)
	}

	// Read before querying so a write that lands in between is never cached.
	gen, genErr := c.store.cache.Generation(ctx, string(c.kind))
	if genErr != nil {
		c.store.logger.Warn("query cache generation read failed", "kind", c.kind, "error", genErr)
	}

	query, args, err := buildSelect(string(c.kind), q)
	if err != nil {
		return nil, err
	}
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.kind, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.kind, err)
		}
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", c.kind, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", c.kind, err)
	}

	if genErr != nil {
		return out, nil
	}
	if encoded, err := json.Marshal(out); err == nil {
		if err := c.store.cache.Set(ctx, string(c.kind), key, gen, encoded); err != nil {
			c.store.logger.Warn("query cache write failed", "kind", c.kind, "error", err)
		}
	}
	return out, nil
}

func (c *Collection[T, P]) Get(ctx context.Context, id string) (*T, error) {
	return c.get(ctx, c.store.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Collection[T, P]) get(ctx context.Context, q queryer, id string) (*T, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `
		SELECT data FROM records WHERE kind = ? AND id = ?
	`, c.kind, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", c.kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", c.kind, err)
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.kind, err)
	}
	return v, nil
}

// Create stores v under a new ID. The record fields of v are overwritten,
// except created_by.
func (c *Collection[T, P]) Create(ctx context.Context, v *T) (*T, error) {
	created, err := c.BulkCreate(ctx, []*T{v})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// BulkCreate stores all records in one transaction; either all or none are written.
func (c *Collection[T, P]) BulkCreate(ctx context.Context, vs []*T) ([]*T, error) {
	err := c.store.InTx(ctx, nil, func(tx *Tx) error {
		for _, v := range vs {
			if err := c.insert(ctx, tx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vs, nil
}

func (c *Collection[T, P]) insert(ctx context.Context, tx *Tx, v *T) error {
	base := P(v).Base()
	now := c.store.now()
	base.ID = uuid.NewString()
	base.CreatedDate = now
	base.UpdatedDate = now

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.kind, err)
	}
	if _, err := tx.tx.ExecContext(ctx, `
		INSERT INTO records (id, kind, data, created_date, updated_date) VALUES (?, ?, ?, ?, ?)
	`, base.ID, c.kind, string(data), formatTime(now), formatTime(now)); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.kind, err)
	}
	tx.touch(c.kind)
	return nil
}

// Update merges patch into the stored record field by field. Fields not in
// patch keep their stored value; the record fields cannot be patched.
func (c *Collection[T, P]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	return c.UpdateFunc(ctx, id, patch, nil)
}

// UpdateFunc is Update followed by fn on the patched record, both applied in
// the same write. fn may be nil.
func (c *Collection[T, P]) UpdateFunc(ctx context.Context, id string, patch map[string]any, fn func(*T) error) (*T, error) {
	for field := range patch {
		if protectedFields[field] {
			return nil, fmt.Errorf("%w: %s is read-only", ErrInvalidPatch, field)
		}
	}
	return c.Mutate(ctx, id, func(v *T) error {
		if err := applyPatch(v, patch); err != nil {
			return err
		}
		if fn != nil {
			return fn(v)
		}
		return nil
	})
}

// Mutate loads the record, applies fn, and writes it back while holding the
// record's lock inside one transaction. Concurrent callers on the same ID
// therefore never lose each other's changes.
func (c *Collection[T, P]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var out *T
	err := c.store.InTx(ctx, []string{id}, func(tx *Tx) error {
		var err error
		out, err = c.MutateIn(ctx, tx, id, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MutateIn is Mutate inside a transaction opened by Store.InTx. The caller
// must hold the lock for id. If fn returns ErrUnchanged nothing is written and
// the record is returned as loaded.
func (c *Collection[T, P]) MutateIn(ctx context.Context, tx *Tx, id string, fn func(*T) error) (*T, error) {
	v, err := c.get(ctx, tx.tx, id)
	if err != nil {
		return nil, err
	}
	stored := *P(v).Base()
	if err := fn(v); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return v, nil
		}
		return nil, err
	}

	base := P(v).Base()
	base.ID = stored.ID
	base.CreatedDate = stored.CreatedDate
	base.CreatedBy = stored.CreatedBy
	base.UpdatedDate = c.store.now()

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.kind, err)
	}
	if _, err := tx.tx.ExecContext(ctx, `
		UPDATE records SET data = ?, updated_date = ? WHERE kind = ? AND id = ?
	`, string(data), formatTime(base.UpdatedDate), c.kind, id); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", c.kind, err)
	}
	tx.touch(c.kind)
	return v, nil
}

func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	return c.store.InTx(ctx, []string{id}, func(tx *Tx) error {
		return c.DeleteIn(ctx, tx, id)
	})
}

// DeleteIn is Delete inside a transaction opened by Store.InTx.
func (c *Collection[T, P]) DeleteIn(ctx context.Context, tx *Tx, id string) error {
	result, err := tx.tx.ExecContext(ctx, `
		DELETE FROM records WHERE kind = ? AND id = ?
	`, c.kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", c.kind, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", c.kind, id, ErrNotFound)
	}
	tx.touch(c.kind)
	return nil
}

// applyPatch overlays patch onto v's JSON form and decodes the result back
// into v. Unknown fields and type mismatches are rejected.
func applyPatch[T any](v *T, patch map[string]any) error {
	current, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	for k, val := range patch {
		merged[k] = val
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	next := new(T)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	*v = *next
	return nil
}

// Count returns how many records match where. Counts bypass the query cache.
func (c *Collection[T, P]) Count(ctx context.Context, where map[string]any) (int, error) {
	clause, args, err := whereClause(string(c.kind), where)
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records "+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.kind, err)
	}
	return n, nil
}

// DeleteWhereIn deletes every record matching where inside tx and returns
// how many were removed.
func (c *Collection[T, P]) DeleteWhereIn(ctx context.Context, tx *Tx, where map[string]any) (int64, error) {
	clause, args, err := whereClause(string(c.kind), where)
	if err != nil {
		return 0, err
	}
	result, err := tx.tx.ExecContext(ctx, "DELETE FROM records "+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", c.kind, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		tx.touch(c.kind)
	}
	return n, nil
}
