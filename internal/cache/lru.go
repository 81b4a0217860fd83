package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is an in-process QueryCache bounded by entry count.
type LRU struct {
	entries *lru.Cache[string, []byte]

	mu   sync.Mutex
	gens map[string]int64
}

func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{entries: c, gens: make(map[string]int64)}, nil
}

func (c *LRU) Get(_ context.Context, kind, key string) ([]byte, error) {
	v, ok := c.entries.Get(lruKey(kind, key))
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (c *LRU) Generation(_ context.Context, kind string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[kind], nil
}

// Set stores value unless kind was invalidated after gen was read.
func (c *LRU) Set(_ context.Context, kind, key string, gen int64, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[kind] != gen {
		return nil
	}
	c.entries.Add(lruKey(kind, key), value)
	return nil
}

func (c *LRU) Invalidate(_ context.Context, kind string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[kind]++
	prefix := kind + "\x00"
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
	return nil
}

func (c *LRU) Len() int { return c.entries.Len() }

func lruKey(kind, key string) string {
	return kind + "\x00" + key
}
