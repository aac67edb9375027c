// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import "context"

// Semaphore implements a counting semaphore for bounded concurrency.
// The extraction fan-out uses one to cap in-flight completion calls.
//
// Thread Safety: Safe for concurrent use.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a new semaphore with the given capacity.
// A capacity below 1 is clamped to 1.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{
		ch: make(chan struct{}, capacity),
	}
}

// Acquire acquires a slot, blocking until one is available.
//
// Inputs:
//   - ctx: Context for cancellation.
//
// Outputs:
//   - error: Non-nil if context was cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire attempts to acquire a slot without blocking.
//
// Outputs:
//   - bool: True if acquired, false if no slots available.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release releases a slot back to the semaphore.
// Must be called after Acquire/TryAcquire succeeds.
func (s *Semaphore) Release() {
	select {
	case <-s.ch:
	default:
		// Semaphore was empty - this is a bug in caller
		panic("semaphore: release without acquire")
	}
}

// Available returns the number of available slots.
func (s *Semaphore) Available() int {
	return cap(s.ch) - len(s.ch)
}
