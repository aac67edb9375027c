// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch feeds files dropped into an inputs directory to the
// ingestion pipeline. Filesystem events are debounced so a file being
// written in several bursts is ingested once, after it settles.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is one debounced filesystem change.
type Event struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the type of change.
	Op Op

	// Time is when the change was detected.
	Time time.Time
}

// Op is the type of file operation.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler is called with each debounced batch. Events are deduplicated
// per path, keeping the latest operation.
type Handler func(events []Event)

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to wait for more changes before the
	// handler fires. Default: 500ms, long enough for a file copy to
	// finish.
	DebounceWindow time.Duration

	// IgnorePatterns are glob patterns matched against base names.
	// Default: hidden files, editor swap and temp files.
	IgnorePatterns []string

	// BufferSize is the size of the change buffer channel. Default: 256.
	BufferSize int
}

// DefaultOptions returns the defaults used when opts is nil.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 500 * time.Millisecond,
		IgnorePatterns: []string{".*", "*.swp", "*.tmp", "*.part"},
		BufferSize:     256,
	}
}

// Watcher watches an inputs directory and hands debounced file changes to
// a handler.
//
// Thread Safety: safe for concurrent use. The handler is called from a
// single goroutine, so a handler that ingests sequentially needs no
// locking of its own.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	ignore   []string

	changes  chan Event
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher over root. Call Start to begin watching
// and Stop to release the underlying notifier.
func NewWatcher(root string, handler Handler, opts *Options) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     root,
		watcher:  fsw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		ignore:   opts.IgnorePatterns,
		changes:  make(chan Event, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching root and every subdirectory. Watching stops when
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops the watcher and closes the underlying notifier.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.ignore {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// processEvents converts notifier events to Events and feeds the
// debounce channel. Newly created directories are added to the watch.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if isDir(event.Name) {
					w.watcher.Add(event.Name)
					continue
				}
			}
			change := Event{Path: event.Name, Op: convertOp(event.Op), Time: time.Now()}
			select {
			case w.changes <- change:
			default:
				// Buffer full; the debouncer is not keeping up. Dropping
				// is safe because a later write event re-queues the file.
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// debounceLoop batches changes and calls the handler after the debounce
// window passes without new events.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []Event
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 && w.handler != nil {
			w.handler(dedupe(batch))
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// dedupe keeps the latest event per path, preserving first-seen order.
func dedupe(events []Event) []Event {
	index := make(map[string]int, len(events))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if i, ok := index[e.Path]; ok {
			out[i] = e
			continue
		}
		index[e.Path] = len(out)
		out = append(out, e)
	}
	return out
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
