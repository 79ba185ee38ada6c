// Package cache provides the cross-run attribution cache: an in-memory LRU
// with TTL, an optional Redis backend, and the adapter that exposes either one
// to the core as ports.AttributionCache.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Store is a typed key/value cache with per-item TTL.
type Store[V any] interface {
	// Get returns the value and true if present and not expired.
	Get(ctx context.Context, key string) (V, bool, error)

	// Set stores value under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	element   *list.Element
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is an in-memory LRU cache with TTL support.
type MemoryCache[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry[V]
	lru      *list.List
	now      func() time.Time
}

// NewMemoryCache creates a cache holding at most capacity items.
// When full, the least recently used item is evicted.
//
// Example:
//
//	c := cache.NewMemoryCache[string](1000)
func NewMemoryCache[V any](capacity int) *MemoryCache[V] {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryCache[V]{
		capacity: capacity,
		items:    make(map[string]*entry[V]),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Get retrieves a value and marks it as recently used.
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false, nil
	}
	if e.expired(c.now()) {
		c.remove(e)
		return zero, false, nil
	}
	c.lru.MoveToFront(e.element)
	return e.value, true, nil
}

// Set stores a value, replacing any previous one under key.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.lru.MoveToFront(e.element)
		return nil
	}

	if len(c.items) >= c.capacity {
		if back := c.lru.Back(); back != nil {
			c.remove(back.Value.(*entry[V]))
		}
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.element = c.lru.PushFront(e)
	c.items[key] = e
	return nil
}

// Delete removes key.
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Len returns the number of stored items, expired ones included.
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of items.
func (c *MemoryCache[V]) Capacity() int {
	return c.capacity
}

// CleanExpired drops every expired item and returns how many were removed.
func (c *MemoryCache[V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, e := range c.items {
		if e.expired(now) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// remove requires c.mu.
func (c *MemoryCache[V]) remove(e *entry[V]) {
	delete(c.items, e.key)
	c.lru.Remove(e.element)
}
