// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query answers questions over the indexed corpus. Each of the
// four retrieval modes assembles a context string; one completion call
// turns context plus question into the final answer.
//
// Retrieval modes:
//
//   - naive:  keyword overlap against stored chunk text.
//   - local:  entities whose name contains the query or whose description
//     contains a query word.
//   - global: relationships touching a matched entity or whose description
//     contains a query word.
//   - hybrid: the local and global blocks together.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/Adak/services/graphrag/graph"
	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/llm"
)

// NoContextPlaceholder substitutes for an empty context block so the final
// prompt is always well formed.
const NoContextPlaceholder = "no relevant information found"

// DefaultTopK bounds retrieved chunks/entities/relationships when the
// caller does not say otherwise.
const DefaultTopK = 5

// ChunkReader supplies stored chunks for keyword retrieval. Implementations
// must return chunks in a stable order across calls; ranking ties preserve
// that order.
type ChunkReader interface {
	AllChunks() ([]model.StoredChunk, error)
}

type Orchestrator struct {
	graph  *graph.Store
	chunks ChunkReader
	llm    llm.LLMClient
	prompt string
	params llm.GenerationParams
	logger *slog.Logger
}

// Option adjusts an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithAnswerPrompt replaces the default answer prompt template. The
// template must contain the {context} and {query} placeholders.
func WithAnswerPrompt(template string) Option {
	return func(o *Orchestrator) { o.prompt = template }
}

// WithParams sets the generation parameters for the final completion call.
func WithParams(params llm.GenerationParams) Option {
	return func(o *Orchestrator) { o.params = params }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator wires the stores and completion client together. All
// three are required.
func NewOrchestrator(graphStore *graph.Store, chunks ChunkReader, client llm.LLMClient, opts ...Option) (*Orchestrator, error) {
	if graphStore == nil {
		return nil, &model.ConfigurationError{Field: "graph", Reason: "graph store is required"}
	}
	if chunks == nil {
		return nil, &model.ConfigurationError{Field: "chunks", Reason: "chunk reader is required"}
	}
	if client == nil {
		return nil, &model.ConfigurationError{Field: "llm", Reason: "completion client is required"}
	}
	o := &Orchestrator{
		graph:  graphStore,
		chunks: chunks,
		llm:    client,
		prompt: DefaultAnswerPrompt,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o, nil
}

// Query retrieves context for the question in the given mode and asks the
// completion service for the answer.
//
// Description:
//
//	Naive mode ranks stored chunks by distinct-word overlap with the query
//	(stable sort, zero-overlap chunks excluded). The graph modes match
//	entities and relationships by lowercased substring rules and render
//	them as bulleted blocks. Whatever mode, an empty context is replaced by
//	a fixed placeholder before the completion call.
//
// Inputs:
//   - ctx: passed through to the completion client.
//   - queryText: the user question.
//   - mode: one of the four retrieval modes.
//   - topK: cap on retrieved items per block; non-positive means
//     DefaultTopK.
//
// Outputs:
//   - string: the completion service's answer.
//   - error: invalid mode, chunk read failure, or completion failure.
//
// Thread Safety: safe for concurrent use.
func (o *Orchestrator) Query(ctx context.Context, queryText string, mode model.QueryMode, topK int) (string, error) {
	if !mode.Valid() {
		return "", &model.ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unknown query mode %q", mode)}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	contextBlock, err := o.buildContext(mode, queryText, topK)
	if err != nil {
		return "", err
	}
	if contextBlock == "" {
		contextBlock = NoContextPlaceholder
	}
	o.logger.Debug("query context assembled", "mode", mode, "context_bytes", len(contextBlock))

	answer, err := o.llm.Generate(ctx, RenderAnswerPrompt(o.prompt, contextBlock, queryText), o.params)
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	return answer, nil
}

func (o *Orchestrator) buildContext(mode model.QueryMode, queryText string, topK int) (string, error) {
	if mode == model.QueryModeNaive {
		return o.naiveContext(queryText, topK)
	}
	return o.graphContext(mode, queryText, topK), nil
}

// naiveContext scores every stored chunk by the number of distinct words
// it shares with the query and concatenates the top-K chunk contents.
func (o *Orchestrator) naiveContext(queryText string, topK int) (string, error) {
	chunks, err := o.chunks.AllChunks()
	if err != nil {
		return "", err
	}
	queryWords := wordSet(queryText)
	if len(queryWords) == 0 {
		return "", nil
	}

	type scoredChunk struct {
		overlap int
		content string
	}
	matches := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		overlap := 0
		for word := range wordSet(chunk.Content) {
			if _, shared := queryWords[word]; shared {
				overlap++
			}
		}
		if overlap > 0 {
			matches = append(matches, scoredChunk{overlap: overlap, content: chunk.Content})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].overlap > matches[j].overlap
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	contents := make([]string, len(matches))
	for i, match := range matches {
		contents[i] = match.content
	}
	return strings.Join(contents, "\n\n"), nil
}

// graphContext renders the entity and/or relationship blocks for the
// local, global and hybrid modes.
func (o *Orchestrator) graphContext(mode model.QueryMode, queryText string, topK int) string {
	export := o.graph.Export()
	queryLower := strings.ToLower(queryText)
	queryWords := strings.Fields(queryLower)

	matched, matchedNames := matchEntities(export.Nodes, queryLower, queryWords)

	var parts []string
	if mode == model.QueryModeLocal || mode == model.QueryModeHybrid {
		if block := renderEntityBlock(matched, topK); block != "" {
			parts = append(parts, block)
		}
	}
	if mode == model.QueryModeGlobal || mode == model.QueryModeHybrid {
		rels := matchRelationships(export.Edges, matchedNames, queryWords)
		if block := renderRelationshipBlock(rels, topK); block != "" {
			parts = append(parts, block)
		}
	}
	return strings.Join(parts, "\n\n")
}

// matchEntities applies the entity filter: the whole lowercased query is a
// substring of the entity name, or any single query word is a substring of
// the description. Returns matches in enumeration order plus the set of
// matched lowercased names for the relationship filter.
func matchEntities(nodes []graph.NodeRecord, queryLower string, queryWords []string) ([]graph.NodeRecord, map[string]bool) {
	matched := make([]graph.NodeRecord, 0)
	matchedNames := make(map[string]bool)
	for _, node := range nodes {
		nameLower := strings.ToLower(node.Label)
		descLower := strings.ToLower(node.Attrs["description"])
		hit := strings.Contains(nameLower, queryLower)
		if !hit {
			for _, word := range queryWords {
				if strings.Contains(descLower, word) {
					hit = true
					break
				}
			}
		}
		if hit {
			matched = append(matched, node)
			matchedNames[nameLower] = true
		}
	}
	return matched, matchedNames
}

// matchRelationships applies the relationship filter: either endpoint name
// is among the matched entity names, or any query word is a substring of
// the relationship description.
func matchRelationships(edges []graph.EdgeRecord, matchedNames map[string]bool, queryWords []string) []graph.EdgeRecord {
	matched := make([]graph.EdgeRecord, 0)
	for _, edge := range edges {
		hit := matchedNames[strings.ToLower(edge.Source)] || matchedNames[strings.ToLower(edge.Target)]
		if !hit {
			descLower := strings.ToLower(edge.Attrs["description"])
			for _, word := range queryWords {
				if strings.Contains(descLower, word) {
					hit = true
					break
				}
			}
		}
		if hit {
			matched = append(matched, edge)
		}
	}
	return matched
}

func renderEntityBlock(entities []graph.NodeRecord, topK int) string {
	if len(entities) == 0 {
		return ""
	}
	if len(entities) > topK {
		entities = entities[:topK]
	}
	lines := make([]string, len(entities))
	for i, node := range entities {
		lines[i] = fmt.Sprintf("- %s: %s", node.Label, node.Attrs["description"])
	}
	return "Entities:\n" + strings.Join(lines, "\n")
}

func renderRelationshipBlock(edges []graph.EdgeRecord, topK int) string {
	if len(edges) == 0 {
		return ""
	}
	if len(edges) > topK {
		edges = edges[:topK]
	}
	lines := make([]string, len(edges))
	for i, edge := range edges {
		lines[i] = fmt.Sprintf("- %s -> %s: %s", edge.Source, edge.Target, edge.Attrs["description"])
	}
	return "Relationships:\n" + strings.Join(lines, "\n")
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
