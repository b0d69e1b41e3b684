// Package cache provides a small generic TTL cache keyed by content digests.
package cache

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/fabmatch/clock"
	"github.com/poiesic/fabmatch/core"
)

// DefaultTTL is how long an entry stays valid.
const DefaultTTL = 300 * time.Second

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is a concurrency-safe map whose entries expire. Concurrent writers to
// the same key race; the last one wins.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	clock   clock.Clock
}

// New creates a cache. A non-positive ttl uses DefaultTTL and a nil clock
// uses the system clock.
func New[V any](ttl time.Duration, c clock.Clock) *TTL[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = clock.System{}
	}
	return &TTL[V]{entries: make(map[string]entry[V]), ttl: ttl, clock: c}
}

// Get returns the live value for key. Expired entries are removed.
func (c *TTL[V]) Get(key string) (V, bool) {
	now := c.clock.Now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !now.Before(e.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && !now.Before(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *TTL[V]) Set(key string, value V) {
	expires := c.clock.Now().Add(c.ttl)
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expires: expires}
	c.mu.Unlock()
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were dropped.
func (c *TTL[V]) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key derives a cache key from a query and the candidate ids it was
// answered with. The order of ids does not matter.
func Key(query string, ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return core.Digest(query, strings.Join(sorted, ","))
}
