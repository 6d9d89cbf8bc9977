// Package cache holds a small in-process TTL cache for computed views such
// as the dashboard summary.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded map whose entries expire after a fixed duration
type TTL[V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]entry[V]
	// gen counts Invalidate calls so a load that straddles one is dropped
	gen uint64
	now func() time.Time
}

// NewTTL creates a cache. A ttl of zero or less disables caching.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:   ttl,
		items: make(map[string]entry[V]),
		now:   time.Now,
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops every entry. Called after writes that change cached views.
func (c *TTL[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	c.gen++
}

func (c *TTL[V]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached, and neither is a result whose load overlapped an
// Invalidate.
func (c *TTL[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	gen := c.generation()
	v, err := load()
	if err != nil {
		return v, err
	}
	c.setIf(gen, key, v)
	return v, nil
}

func (c *TTL[V]) setIf(gen uint64, key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}
