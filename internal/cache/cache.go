package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when the key is absent or was invalidated.
var ErrMiss = errors.New("cache miss")

// QueryCache holds serialized query results grouped by entity kind. Every
// mutation of a kind drops all of that kind's entries at once.
//
// Callers read the kind's Generation before running the query and pass it to
// Set. A Set whose generation was overtaken by Invalidate is discarded, so a
// result read before a concurrent write never outlives that write.
type QueryCache interface {
	Get(ctx context.Context, kind, key string) ([]byte, error)
	Generation(ctx context.Context, kind string) (int64, error)
	Set(ctx context.Context, kind, key string, gen int64, value []byte) error
	Invalidate(ctx context.Context, kind string) error
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string, string) ([]byte, error)      { return nil, ErrMiss }
func (Nop) Generation(context.Context, string) (int64, error)        { return 0, nil }
func (Nop) Set(context.Context, string, string, int64, []byte) error { return nil }
func (Nop) Invalidate(context.Context, string) error                 { return nil }
