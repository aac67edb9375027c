// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vector stores fixed-dimension embeddings and answers cosine
// similarity queries over a full linear scan. Ranking ties break by
// insertion order: the id stored earliest wins, and an overwrite keeps the
// id's original position. Mutations persist the whole store as one durable
// snapshot before returning, like the graph store.
package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/storage"
)

// snapshotName keys the vector blob inside the storage layer.
const snapshotName = "vectors"

// ErrDimensionMismatch is returned when a vector's length differs from the
// store's configured dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is one ranked query result.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store holds id-keyed embeddings of one fixed dimension.
//
// Thread Safety: a single RWMutex serializes mutations; queries run
// concurrently with other queries.
type Store struct {
	mu      sync.RWMutex
	dim     int
	ids     []string // insertion order, drives the ranking tie-break
	vectors map[string][]float32
	meta    map[string]map[string]string
	disk    *storage.Store
	logger  *slog.Logger
}

type vectorSnapshot struct {
	Dim     int                          `json:"dim"`
	IDs     []string                     `json:"ids"`
	Vectors map[string][]float32         `json:"vectors"`
	Meta    map[string]map[string]string `json:"meta"`
}

// Option adjusts a Store at construction time.
type Option func(*Store)

// WithPersistence mirrors the store into durable storage as a snapshot per
// mutation. Without it the store is ephemeral.
func WithPersistence(disk *storage.Store) Option {
	return func(s *Store) { s.disk = disk }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a vector store for dimension dim, loading the previous
// snapshot when persistence is configured. A snapshot recorded with a
// different dimension is a configuration error.
func NewStore(dim int, opts ...Option) (*Store, error) {
	if dim <= 0 {
		return nil, &model.ConfigurationError{Field: "dimension", Reason: fmt.Sprintf("must be positive, got %d", dim)}
	}
	s := &Store{
		dim:     dim,
		vectors: make(map[string][]float32),
		meta:    make(map[string]map[string]string),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.disk != nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	raw, found, err := s.disk.LoadSnapshot(snapshotName)
	if err != nil {
		return &model.StorageError{Op: "load vector snapshot", Err: err}
	}
	if !found {
		return nil
	}
	var snap vectorSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return &model.StorageError{Op: "decode vector snapshot", Err: err}
	}
	if snap.Dim != s.dim {
		return &model.ConfigurationError{
			Field:  "dimension",
			Reason: fmt.Sprintf("stored vectors are %d-dimensional, configured %d", snap.Dim, s.dim),
		}
	}
	s.ids = snap.IDs
	if snap.Vectors != nil {
		s.vectors = snap.Vectors
	}
	if snap.Meta != nil {
		s.meta = snap.Meta
	}
	s.logger.Info("vector snapshot loaded", "entries", len(s.ids), "dim", s.dim)
	return nil
}

func (s *Store) persistLocked() error {
	if s.disk == nil {
		return nil
	}
	raw, err := json.Marshal(vectorSnapshot{Dim: s.dim, IDs: s.ids, Vectors: s.vectors, Meta: s.meta})
	if err != nil {
		return &model.StorageError{Op: "encode vector snapshot", Err: err}
	}
	if err := s.disk.SaveSnapshot(snapshotName, raw); err != nil {
		return &model.StorageError{Op: "write vector snapshot", Err: err}
	}
	return nil
}

// Upsert stores a vector and its metadata under id, overwriting any
// previous entry without changing the id's insertion position. The
// mutation is durable when the call returns.
func (s *Store) Upsert(id string, vec []float32, metadata map[string]string) error {
	if len(vec) != s.dim {
		return fmt.Errorf("upsert %q: want %d components, got %d: %w", id, s.dim, len(vec), ErrDimensionMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vectors[id]; !exists {
		s.ids = append(s.ids, id)
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	s.vectors[id] = stored
	if metadata == nil {
		delete(s.meta, id)
	} else {
		s.meta[id] = copyMetadata(metadata)
	}
	return s.persistLocked()
}

// Query ranks every stored vector by cosine similarity to vec, descending.
// Equal scores keep insertion order. At most topK matches are returned;
// topK <= 0 returns none.
func (s *Store) Query(vec []float32, topK int) ([]Match, error) {
	if len(vec) != s.dim {
		return nil, fmt.Errorf("query: want %d components, got %d: %w", s.dim, len(vec), ErrDimensionMismatch)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 || len(s.ids) == 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(s.ids))
	for _, id := range s.ids {
		matches = append(matches, Match{
			ID:       id,
			Score:    cosine(vec, s.vectors[id]),
			Metadata: copyMetadata(s.meta[id]),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes the id's vector and metadata. Absent ids return
// (false, nil), never an error.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vectors[id]; !exists {
		return false, nil
	}
	delete(s.vectors, id)
	delete(s.meta, id)
	for i, storedID := range s.ids {
		if storedID == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	if err := s.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports whether id is stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vectors[id]
	return ok
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Dimension returns the configured vector dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// cosine computes cosine similarity in float64. A zero-magnitude operand
// yields 0 rather than NaN.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func copyMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	return out
}
