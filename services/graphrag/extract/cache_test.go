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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCacheGetOrComputeStores verifies a computed value is returned on the
// next call without recomputing.
func TestCacheGetOrComputeStores(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int64
	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}

	got, err := cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	got, err = cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	assert.Equal(t, int64(1), calls.Load())
	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Computes)
}

// TestCacheSingleFlight verifies concurrent callers for one key trigger
// exactly one computation.
func TestCacheSingleFlight(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int64
	gate := make(chan struct{})

	const workers = 8
	results := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			<-gate
			results[slot], errs[slot] = cache.GetOrCompute(context.Background(), "shared", func(ctx context.Context) (string, error) {
				calls.Add(1)
				time.Sleep(30 * time.Millisecond)
				return "once", nil
			})
		}(i)
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for slot := 0; slot < workers; slot++ {
		require.NoError(t, errs[slot])
		assert.Equal(t, "once", results[slot])
	}
}

// TestCacheErrorNotCached verifies a compute failure leaves no entry behind
// so the next call retries.
func TestCacheErrorNotCached(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int64
	boom := errors.New("backend down")

	_, err := cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	got, err := cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int64(2), calls.Load())
}

// TestCacheForget verifies a forgotten key is recomputed.
func TestCacheForget(t *testing.T) {
	cache := NewCache()
	var calls atomic.Int64
	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	_, err := cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	cache.Forget("k")
	assert.Equal(t, 0, cache.Len())

	_, err = cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

// TestCacheClear verifies all entries are removed in one step.
func TestCacheClear(t *testing.T) {
	cache := NewCache()
	for _, key := range []string{"a", "b", "c"} {
		_, err := cache.GetOrCompute(context.Background(), key, func(ctx context.Context) (string, error) {
			return "v-" + key, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, cache.Len())

	removed := cache.Clear()
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Stats().Entries)
}
