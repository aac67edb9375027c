// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage provides the durable layer beneath the engine's four
// persisted structures: the chunk map, the document-status map, the graph
// snapshot, and the embedding snapshot.
//
// All four live in one embedded BadgerDB keyed by structure prefix. Each
// structure is written in its own transaction; there are no transactions
// spanning structures, so the stores stay independently durable and are
// correlated only by shared identifiers.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
// This package follows Apache 2.0 guidelines for attribution and usage.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the embedded database.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites forces every commit to reach disk before returning.
	// Mutations are only acknowledged once durable, so this defaults to
	// true outside of tests.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, internal logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns durable production defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: no disk I/O, no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the shared durable backend. It owns the BadgerDB handle and the
// optional GC goroutine.
type Store struct {
	db       *badger.DB
	gc       *gcRunner
	path     string
	inMemory bool
}

// Open creates and opens the durable store.
//
// Description:
//
//	Opens a BadgerDB database at the configured path, or in memory if
//	InMemory is true. Creates the directory if it doesn't exist and
//	starts the GC goroutine when an interval is configured.
//
// Inputs:
//
//	cfg - Store configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*Store - The opened store. Caller must call Close() when done.
//	error - Non-nil if the path is invalid or the database cannot open.
//
// Thread Safety: The returned *Store is safe for concurrent use.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}

	s := &Store{db: db, path: cfg.Path, inMemory: cfg.InMemory}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.start()
	}
	return s, nil
}

// OpenInMemory opens an in-memory store for testing.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

// Path returns the store directory, or empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// InMemory reports whether the store has no durable backing.
func (s *Store) InMemory() bool { return s.inMemory }

// Sync flushes pending writes to disk. No-op for in-memory stores.
func (s *Store) Sync() error {
	if s.inMemory {
		return nil
	}
	return s.db.Sync()
}

// PutJSON durably writes one value under prefix/key in its own committed
// transaction. The write is acknowledged only after the commit returns.
func (s *Store) PutJSON(prefix, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", prefix, key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storageKey(prefix, key), data)
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", prefix, key, err)
	}
	return nil
}

// GetJSON reads prefix/key into out. Returns false when the key is absent.
func (s *Store) GetJSON(prefix, key string, out any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(prefix, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", prefix, key, err)
	}
	return true, nil
}

// Delete removes prefix/key. Deleting an absent key is not an error.
func (s *Store) Delete(prefix, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storageKey(prefix, key))
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", prefix, key, err)
	}
	return nil
}

// ForEach visits every key under prefix in lexicographic key order.
func (s *Store) ForEach(prefix string, fn func(key string, value []byte) error) error {
	keyPrefix := []byte(prefix + "/")
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), prefix+"/")
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllJSON decodes every value under prefix into a map keyed by the
// trailing key segment.
func AllJSON[T any](s *Store, prefix string) (map[string]T, error) {
	out := make(map[string]T)
	err := s.ForEach(prefix, func(key string, value []byte) error {
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decode %s/%s: %w", prefix, key, err)
		}
		out[key] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func storageKey(prefix, key string) []byte {
	return []byte(prefix + "/" + key)
}
