// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "sort"

// NodeRecord is one node of a traversal or export result. Label is the
// node's "name" attribute, falling back to the id.
type NodeRecord struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// EdgeRecord is one directed edge of a traversal or export result.
type EdgeRecord struct {
	Source string            `json:"source"`
	Target string            `json:"target"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// SubgraphResult is the outcome of a traversal or a full export. Both
// slices are always non-nil.
type SubgraphResult struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// Statistics summarizes the graph for monitoring surfaces. EntityNames is
// a sample of at most ten node ids in lexicographic order.
type Statistics struct {
	TotalEntities      int      `json:"total_entities"`
	TotalRelationships int      `json:"total_relationships"`
	EntityNames        []string `json:"entity_names"`
}

// statisticsSampleSize bounds the node-name sample in Statistics.
const statisticsSampleSize = 10

// Subgraph walks breadth-first from start, visiting each node once.
//
// Description:
//
//	Expansion of a visited node records one edge per outgoing neighbor,
//	including neighbors already visited; unvisited neighbors are queued.
//	The walk stops when the queue drains, the visited count reaches
//	maxNodes, or remaining queue items exceed maxDepth. The edge list is
//	therefore what the walk traversed, not the full induced subgraph over
//	the visited nodes: an edge between two visited nodes is absent unless
//	some expansion crossed it.
//
// Inputs:
//   - start: node id to begin from. An absent id yields an empty result,
//     not an error.
//   - maxDepth: nodes deeper than this are not visited; a node at exactly
//     maxDepth is included but not expanded.
//   - maxNodes: hard cap on visited nodes.
//
// Outputs:
//   - SubgraphResult: visited nodes in visit order, traversed edges in
//     discovery order.
//
// Thread Safety: pure read; holds the read lock for the whole walk.
func (s *Store) Subgraph(start string, maxDepth, maxNodes int) SubgraphResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := SubgraphResult{Nodes: []NodeRecord{}, Edges: []EdgeRecord{}}
	if _, ok := s.nodes[start]; !ok {
		return result
	}

	type queueItem struct {
		id    string
		depth int
	}
	visited := make(map[string]bool)
	queue := []queueItem{{id: start, depth: 0}}

	for len(queue) > 0 && len(result.Nodes) < maxNodes {
		item := queue[0]
		queue = queue[1:]
		if visited[item.id] || item.depth > maxDepth {
			continue
		}
		visited[item.id] = true
		result.Nodes = append(result.Nodes, s.nodeRecordLocked(item.id))
		if item.depth < maxDepth {
			for _, neighbor := range s.neighborsLocked(item.id) {
				result.Edges = append(result.Edges, s.edgeRecordLocked(item.id, neighbor))
				if !visited[neighbor] {
					queue = append(queue, queueItem{id: neighbor, depth: item.depth + 1})
				}
			}
		}
	}
	return result
}

// Export returns the entire graph as node and edge records, nodes in
// lexicographic id order, edges ordered by (source, target).
func (s *Store) Export() SubgraphResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := SubgraphResult{
		Nodes: make([]NodeRecord, 0, len(s.nodes)),
		Edges: []EdgeRecord{},
	}
	for _, id := range s.nodeIDsLocked() {
		result.Nodes = append(result.Nodes, s.nodeRecordLocked(id))
	}
	sources := make([]string, 0, len(s.edges))
	for source := range s.edges {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		for _, target := range s.neighborsLocked(source) {
			result.Edges = append(result.Edges, s.edgeRecordLocked(source, target))
		}
	}
	return result
}

// Statistics returns counts and a bounded name sample.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Statistics{
		TotalEntities: len(s.nodes),
		EntityNames:   []string{},
	}
	for _, targets := range s.edges {
		stats.TotalRelationships += len(targets)
	}
	ids := s.nodeIDsLocked()
	if len(ids) > statisticsSampleSize {
		ids = ids[:statisticsSampleSize]
	}
	stats.EntityNames = append(stats.EntityNames, ids...)
	return stats
}

func (s *Store) nodeRecordLocked(id string) NodeRecord {
	attrs := s.nodes[id]
	label := attrs["name"]
	if label == "" {
		label = id
	}
	return NodeRecord{ID: id, Label: label, Attrs: copyAttrs(attrs)}
}

func (s *Store) edgeRecordLocked(source, target string) EdgeRecord {
	return EdgeRecord{Source: source, Target: target, Attrs: copyAttrs(s.edges[source][target])}
}
