// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes raw completion responses keyed by chunk identity so that
// re-indexing a document never repeats a completion call for an unchanged
// chunk. Entries live until Clear or Forget; there is no expiry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	group   singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]string),
	}
}

// GetOrCompute returns the cached value for key, computing it at most once
// across concurrent callers.
//
// Description:
//
//	Checks the cache under a read lock. On a miss, callers for the same key
//	collapse onto a single in-flight computation; the winner runs compute,
//	stores the result, and every waiter receives the same value. A compute
//	error is shared with all waiters of that flight and is never stored, so
//	the next call retries.
//
// Inputs:
//   - ctx: governs the computation. Waiters that joined an existing flight
//     share the outcome of the initiating caller's context.
//   - key: cache key, typically derived from a chunk id.
//   - compute: invoked only when the key is absent.
//
// Outputs:
//   - string: the cached or freshly computed value.
//   - error: the compute error, if the flight failed.
//
// Thread Safety: safe for concurrent use.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (string, error)) (string, error) {
	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return value, nil
	}
	c.misses.Add(1)

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A finished flight may have stored the value between our miss and
		// this callback running.
		c.mu.RLock()
		value, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return value, nil
		}
		computed, err := compute(ctx)
		if err != nil {
			return "", err
		}
		c.computes.Add(1)
		c.mu.Lock()
		c.entries[key] = computed
		c.mu.Unlock()
		return computed, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Forget drops a single entry so the next GetOrCompute for the key runs its
// compute again. Used when a stored response turns out to be unusable.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// Clear removes every entry and returns how many were dropped. Computations
// in flight during Clear still complete and repopulate their own key.
func (c *Cache) Clear() int {
	c.mu.Lock()
	removed := len(c.entries)
	c.entries = make(map[string]string)
	c.mu.Unlock()
	return removed
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Entries:  entries,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}
