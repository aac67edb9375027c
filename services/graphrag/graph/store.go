// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the directed attributed knowledge graph.
//
// The graph lives in memory as adjacency maps and is mirrored to durable
// storage as one whole-graph snapshot per mutation. A mutation is only
// acknowledged after its snapshot write returns; on a write failure the
// in-memory state may run ahead of the durable copy until the caller
// retries. Reads never touch storage.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/storage"
)

// snapshotName keys the graph blob inside the storage layer.
const snapshotName = "graph"

// ErrMissingEndpoint is returned by AddEdge when either endpoint node does
// not exist. Edges never create their endpoints implicitly.
var ErrMissingEndpoint = errors.New("edge endpoint not present in graph")

// Store is a directed attributed graph with upsert semantics.
//
// Thread Safety: a single RWMutex serializes all mutations (each rewrites
// the durable snapshot); reads run concurrently with other reads.
type Store struct {
	mu     sync.RWMutex
	nodes  map[string]map[string]string
	edges  map[string]map[string]map[string]string // source -> target -> attrs
	disk   *storage.Store
	logger *slog.Logger
}

type graphSnapshot struct {
	Nodes map[string]map[string]string            `json:"nodes"`
	Edges map[string]map[string]map[string]string `json:"edges"`
}

// Option adjusts a Store at construction time.
type Option func(*Store)

// WithPersistence mirrors the graph into the given storage as a snapshot
// per mutation. Without it the graph is ephemeral.
func WithPersistence(disk *storage.Store) Option {
	return func(s *Store) { s.disk = disk }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a graph store, loading the previous snapshot when
// persistence is configured and a snapshot exists.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		nodes:  make(map[string]map[string]string),
		edges:  make(map[string]map[string]map[string]string),
		logger: slog.Default(),
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
		return &model.StorageError{Op: "load graph snapshot", Err: err}
	}
	if !found {
		return nil
	}
	var snap graphSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return &model.StorageError{Op: "decode graph snapshot", Err: err}
	}
	if snap.Nodes != nil {
		s.nodes = snap.Nodes
	}
	if snap.Edges != nil {
		s.edges = snap.Edges
	}
	s.logger.Info("graph snapshot loaded", "nodes", len(s.nodes))
	return nil
}

// persistLocked writes the whole graph as one snapshot. Callers hold the
// write lock.
func (s *Store) persistLocked() error {
	if s.disk == nil {
		return nil
	}
	raw, err := json.Marshal(graphSnapshot{Nodes: s.nodes, Edges: s.edges})
	if err != nil {
		return &model.StorageError{Op: "encode graph snapshot", Err: err}
	}
	if err := s.disk.SaveSnapshot(snapshotName, raw); err != nil {
		return &model.StorageError{Op: "write graph snapshot", Err: err}
	}
	return nil
}

// AddNode creates the node if absent, otherwise merges attrs into the
// existing attributes: new keys are added, existing keys overwritten,
// untouched keys retained. The mutation is durable when the call returns.
func (s *Store) AddNode(id string, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.nodes[id]
	if !ok {
		existing = make(map[string]string, len(attrs))
		s.nodes[id] = existing
	}
	for key, value := range attrs {
		existing[key] = value
	}
	return s.persistLocked()
}

// AddEdge upserts the directed edge (source, target) with the same
// attribute-merge semantics as AddNode. Both endpoints must already exist;
// a missing endpoint returns ErrMissingEndpoint.
func (s *Store) AddEdge(source, target string, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[source]; !ok {
		return fmt.Errorf("add edge %s->%s: %w", source, target, ErrMissingEndpoint)
	}
	if _, ok := s.nodes[target]; !ok {
		return fmt.Errorf("add edge %s->%s: %w", source, target, ErrMissingEndpoint)
	}
	targets, ok := s.edges[source]
	if !ok {
		targets = make(map[string]map[string]string)
		s.edges[source] = targets
	}
	existing, ok := targets[target]
	if !ok {
		existing = make(map[string]string, len(attrs))
		targets[target] = existing
	}
	for key, value := range attrs {
		existing[key] = value
	}
	return s.persistLocked()
}

// GetNode returns a copy of the node's attributes.
func (s *Store) GetNode(id string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return copyAttrs(attrs), true
}

// GetEdge returns a copy of the directed edge's attributes.
func (s *Store) GetEdge(source, target string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.edges[source][target]
	if !ok {
		return nil, false
	}
	return copyAttrs(attrs), true
}

// HasNode reports whether the node exists.
func (s *Store) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// HasEdge reports whether the directed edge exists.
func (s *Store) HasEdge(source, target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[source][target]
	return ok
}

// Neighbors returns the targets of the node's outgoing edges in
// lexicographic order. Incoming edges are not reported.
func (s *Store) Neighbors(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighborsLocked(id)
}

func (s *Store) neighborsLocked(id string) []string {
	targets := s.edges[id]
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// DeleteNode removes the node and every edge incident to it in either
// direction. Absent nodes return (false, nil), never an error.
func (s *Store) DeleteNode(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return false, nil
	}
	delete(s.nodes, id)
	delete(s.edges, id)
	for source, targets := range s.edges {
		delete(targets, id)
		if len(targets) == 0 {
			delete(s.edges, source)
		}
	}
	if err := s.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteEdge removes exactly the directed edge (source, target). Absent
// edges return (false, nil), never an error.
func (s *Store) DeleteEdge(source, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	targets, ok := s.edges[source]
	if !ok {
		return false, nil
	}
	if _, ok := targets[target]; !ok {
		return false, nil
	}
	delete(targets, target)
	if len(targets) == 0 {
		delete(s.edges, source)
	}
	if err := s.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of directed edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, targets := range s.edges {
		count += len(targets)
	}
	return count
}

// NodeIDs returns every node id in lexicographic order.
func (s *Store) NodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeIDsLocked()
}

func (s *Store) nodeIDsLocked() []string {
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for key, value := range attrs {
		out[key] = value
	}
	return out
}
