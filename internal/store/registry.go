package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/vbonduro/propdesk/internal/domain"
)

// Generic is the untyped face of a Collection, used where the kind is only
// known at runtime (the entity HTTP API).
type Generic interface {
	Kind() domain.Kind
	FilterRecords(ctx context.Context, q Query) (any, error)
	GetRecord(ctx context.Context, id string) (any, error)
	CreateRecord(ctx context.Context, data []byte, createdBy string) (any, error)
	BulkCreateRecords(ctx context.Context, data []byte, createdBy string) (any, error)
	UpdateRecord(ctx context.Context, id string, patch map[string]any) (any, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, where map[string]any) (int, error)
	DeleteWhereIn(ctx context.Context, tx *Tx, where map[string]any) (int64, error)
}

func (c *Collection[T, P]) FilterRecords(ctx context.Context, q Query) (any, error) {
	return c.Filter(ctx, q)
}

func (c *Collection[T, P]) GetRecord(ctx context.Context, id string) (any, error) {
	return c.Get(ctx, id)
}

func (c *Collection[T, P]) CreateRecord(ctx context.Context, data []byte, createdBy string) (any, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err == nil {
		if err := checkManaged(c.managed, fields); err != nil {
			return nil, err
		}
	}
	v := new(T)
	if err := decodeStrict(data, v); err != nil {
		return nil, err
	}
	P(v).Base().CreatedBy = createdBy
	return c.Create(ctx, v)
}

func (c *Collection[T, P]) BulkCreateRecords(ctx context.Context, data []byte, createdBy string) (any, error) {
	var objects []map[string]json.RawMessage
	if err := json.Unmarshal(data, &objects); err == nil {
		for _, fields := range objects {
			if err := checkManaged(c.managed, fields); err != nil {
				return nil, err
			}
		}
	}
	var vs []*T
	if err := decodeStrict(data, &vs); err != nil {
		return nil, err
	}
	for _, v := range vs {
		if v == nil {
			return nil, fmt.Errorf("%w: null record", ErrInvalidPatch)
		}
		P(v).Base().CreatedBy = createdBy
	}
	return c.BulkCreate(ctx, vs)
}

func (c *Collection[T, P]) UpdateRecord(ctx context.Context, id string, patch map[string]any) (any, error) {
	if err := checkManaged(c.managed, patch); err != nil {
		return nil, err
	}
	return c.Update(ctx, id, patch)
}

// checkManaged rejects fields that a domain service owns.
func checkManaged[V any](managed map[string]bool, fields map[string]V) error {
	for field := range fields {
		if managed[field] {
			return fmt.Errorf("%w: %s is changed through its own endpoint", ErrInvalidPatch, field)
		}
	}
	return nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return nil
}

// Registry maps each kind to its collection.
type Registry map[domain.Kind]Generic

func (r Registry) Register(g Generic) {
	r[g.Kind()] = g
}

func (r Registry) Lookup(kind domain.Kind) (Generic, bool) {
	g, ok := r[kind]
	return g, ok
}
