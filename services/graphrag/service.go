// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphrag assembles the knowledge-graph engine behind a single
// Service facade and exposes it over HTTP.
//
// The facade owns four independently durable structures that share one
// storage backend: the chunk map, the document-status map, the entity
// graph, and the embedding collection. They are correlated only by
// shared identifiers; there are no cross-structure transactions, so the
// graph and the vector collection can drift if a mutation fails between
// them.
package graphrag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/Adak/services/graphrag/chunk"
	"github.com/AleutianAI/Adak/services/graphrag/extract"
	"github.com/AleutianAI/Adak/services/graphrag/graph"
	"github.com/AleutianAI/Adak/services/graphrag/ingest"
	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/query"
	"github.com/AleutianAI/Adak/services/graphrag/storage"
	"github.com/AleutianAI/Adak/services/graphrag/token"
	"github.com/AleutianAI/Adak/services/graphrag/vector"
	"github.com/AleutianAI/Adak/services/llm"
)

// ServiceVersion is the engine version reported by SystemInfo.
const ServiceVersion = "0.1.0"

// Config collects every capability and knob the engine needs. LLM,
// Embedder, and Tokenizer are required; everything else has a default.
type Config struct {
	// DataDir is the durable storage directory. Empty runs the engine
	// fully in memory, which is the test configuration.
	DataDir string

	// LLM answers completion calls for extraction and querying.
	LLM llm.LLMClient

	// Embedder produces fixed-dimension vectors for entities and
	// relationships.
	Embedder llm.Embedder

	// Tokenizer drives token-bounded chunking.
	Tokenizer token.Tokenizer

	// Chunk overrides the default chunk window. Zero value means
	// chunk.DefaultOptions().
	Chunk chunk.Options

	// MaxConcurrentExtractions caps in-flight completion calls per
	// document. Zero means ingest.DefaultMaxConcurrentExtractions.
	MaxConcurrentExtractions int

	// ExtractPrompt and AnswerPrompt override the built-in templates
	// when non-empty.
	ExtractPrompt string
	AnswerPrompt  string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Service is the embedded knowledge-graph engine. One instance owns one
// graph; multi-graph directory management belongs to the caller.
type Service struct {
	cfg          Config
	disk         *storage.Store
	graph        *graph.Store
	vectors      *vector.Store
	chunks       *ingest.ChunkStore
	status       *ingest.StatusStore
	cache        *extract.Cache
	extractor    *extract.Extractor
	processor    *ingest.Processor
	orchestrator *query.Orchestrator
	logger       *slog.Logger
	startedAt    time.Time
}

// New validates cfg, opens storage, and wires the full pipeline. Every
// missing capability is reported as a model.ConfigurationError here so
// nothing fails deep inside an ingest or query.
func New(cfg Config) (*Service, error) {
	if cfg.LLM == nil {
		return nil, &model.ConfigurationError{Field: "llm", Reason: "completion service is required"}
	}
	if cfg.Embedder == nil {
		return nil, &model.ConfigurationError{Field: "embedder", Reason: "embedding service is required"}
	}
	if cfg.Tokenizer == nil {
		return nil, &model.ConfigurationError{Field: "tokenizer", Reason: "tokenizer is required"}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Chunk == (chunk.Options{}) {
		cfg.Chunk = chunk.DefaultOptions()
	}
	if cfg.MaxConcurrentExtractions == 0 {
		cfg.MaxConcurrentExtractions = ingest.DefaultMaxConcurrentExtractions
	}

	var disk *storage.Store
	var err error
	if cfg.DataDir == "" {
		disk, err = storage.OpenInMemory()
	} else {
		disk, err = storage.Open(storage.DefaultConfig(cfg.DataDir))
	}
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	s, err := assemble(cfg, disk)
	if err != nil {
		disk.Close()
		return nil, err
	}
	return s, nil
}

// assemble wires the stores and pipeline over an open storage backend.
func assemble(cfg Config, disk *storage.Store) (*Service, error) {
	graphStore, err := graph.NewStore(graph.WithPersistence(disk), graph.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}
	vectorStore, err := vector.NewStore(cfg.Embedder.Dimension(),
		vector.WithPersistence(disk), vector.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}
	chunkStore, err := ingest.NewChunkStore(disk)
	if err != nil {
		return nil, err
	}
	statusStore, err := ingest.NewStatusStore(disk)
	if err != nil {
		return nil, err
	}

	cache := extract.NewCache()
	extractOpts := []extract.Option{extract.WithLogger(cfg.Logger)}
	if cfg.ExtractPrompt != "" {
		extractOpts = append(extractOpts, extract.WithPrompt(cfg.ExtractPrompt))
	}
	extractor, err := extract.NewExtractor(cfg.LLM, cache, extractOpts...)
	if err != nil {
		return nil, err
	}

	processor, err := ingest.NewProcessor(
		cfg.Tokenizer, extractor, cfg.Embedder,
		graphStore, vectorStore, chunkStore, statusStore,
		ingest.WithChunkOptions(cfg.Chunk),
		ingest.WithMaxConcurrentExtractions(cfg.MaxConcurrentExtractions),
		ingest.WithLogger(cfg.Logger),
	)
	if err != nil {
		return nil, err
	}

	queryOpts := []query.Option{query.WithLogger(cfg.Logger)}
	if cfg.AnswerPrompt != "" {
		queryOpts = append(queryOpts, query.WithAnswerPrompt(cfg.AnswerPrompt))
	}
	orchestrator, err := query.NewOrchestrator(graphStore, chunkStore, cfg.LLM, queryOpts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:          cfg,
		disk:         disk,
		graph:        graphStore,
		vectors:      vectorStore,
		chunks:       chunkStore,
		status:       statusStore,
		cache:        cache,
		extractor:    extractor,
		processor:    processor,
		orchestrator: orchestrator,
		logger:       cfg.Logger,
		startedAt:    time.Now().UTC(),
	}, nil
}

// Close releases the storage backend. The service must not be used after
// Close returns.
func (s *Service) Close() error {
	return s.disk.Close()
}

// Ingest runs the full chunk/extract/merge/store pipeline on raw text and
// returns when the document has reached a terminal status. Pipeline
// failures surface through the status record and manifest inside the
// result, not through the error return.
func (s *Service) Ingest(ctx context.Context, content string) (ingest.Result, error) {
	return s.processor.ProcessText(ctx, content)
}

// IngestFile runs the pipeline on the content of one file.
func (s *Service) IngestFile(ctx context.Context, path string) (ingest.Result, error) {
	return s.processor.ProcessFile(ctx, path)
}

// Query answers a natural-language question in the given retrieval mode.
func (s *Service) Query(ctx context.Context, text string, mode model.QueryMode, topK int) (string, error) {
	return s.orchestrator.Query(ctx, text, mode, topK)
}

// GetEntity returns the entity stored under name, reporting whether it
// exists.
func (s *Service) GetEntity(name string) (model.Entity, bool) {
	attrs, ok := s.graph.GetNode(name)
	if !ok {
		return model.Entity{}, false
	}
	return entityFromAttrs(name, attrs), true
}

// EntityUpdate carries the mutable entity fields. Nil fields are left
// unchanged.
type EntityUpdate struct {
	Type        *string
	Description *string
}

// UpdateEntity applies the update to the named entity and refreshes its
// embedding. Absent entities yield (false, nil), never an error.
func (s *Service) UpdateEntity(ctx context.Context, name string, update EntityUpdate) (bool, error) {
	attrs, ok := s.graph.GetNode(name)
	if !ok {
		return false, nil
	}
	if update.Type != nil {
		attrs["type"] = *update.Type
	}
	if update.Description != nil {
		attrs["description"] = *update.Description
	}
	if err := s.graph.AddNode(name, attrs); err != nil {
		return false, err
	}

	entity := entityFromAttrs(name, attrs)
	vecs, err := s.cfg.Embedder.Embed(ctx, []string{ingest.EntityEmbeddingText(entity)})
	if err != nil {
		return false, fmt.Errorf("re-embed entity %q: %w", name, err)
	}
	if len(vecs) != 1 {
		return false, fmt.Errorf("embedder returned %d vectors for 1 text", len(vecs))
	}
	if err := s.vectors.Upsert(name, vecs[0], ingest.EntityAttrs(entity)); err != nil {
		return false, err
	}
	s.logger.Info("entity updated", "name", name)
	return true, nil
}

// DeleteEntity removes the named entity, every edge incident to it, and
// the embeddings of the entity and of those edges. Absent entities yield
// (false, nil).
func (s *Service) DeleteEntity(name string) (bool, error) {
	if !s.graph.HasNode(name) {
		return false, nil
	}

	// Collect incident edges before the cascade removes them, so their
	// embeddings can be dropped too.
	export := s.graph.Export()
	var incident []string
	for _, e := range export.Edges {
		if e.Source == name || e.Target == name {
			incident = append(incident, e.Source+"->"+e.Target)
		}
	}

	deleted, err := s.graph.DeleteNode(name)
	if err != nil || !deleted {
		return deleted, err
	}
	if _, err := s.vectors.Delete(name); err != nil {
		return true, err
	}
	for _, id := range incident {
		if _, err := s.vectors.Delete(id); err != nil {
			return true, err
		}
	}
	s.logger.Info("entity deleted", "name", name, "cascaded_edges", len(incident))
	return true, nil
}

// GetRelationship returns the directed edge (source, target), reporting
// whether it exists.
func (s *Service) GetRelationship(source, target string) (model.Relationship, bool) {
	attrs, ok := s.graph.GetEdge(source, target)
	if !ok {
		return model.Relationship{}, false
	}
	return relationshipFromAttrs(source, target, attrs), true
}

// RelationshipUpdate carries the mutable relationship fields. Nil fields
// are left unchanged.
type RelationshipUpdate struct {
	Relation    *string
	Description *string
}

// UpdateRelationship applies the update to the directed edge (source,
// target) and refreshes its embedding. Absent edges yield (false, nil).
func (s *Service) UpdateRelationship(ctx context.Context, source, target string, update RelationshipUpdate) (bool, error) {
	attrs, ok := s.graph.GetEdge(source, target)
	if !ok {
		return false, nil
	}
	if update.Relation != nil {
		attrs["relation"] = *update.Relation
	}
	if update.Description != nil {
		attrs["description"] = *update.Description
	}
	if err := s.graph.AddEdge(source, target, attrs); err != nil {
		return false, err
	}

	rel := relationshipFromAttrs(source, target, attrs)
	vecs, err := s.cfg.Embedder.Embed(ctx, []string{ingest.RelationshipEmbeddingText(rel)})
	if err != nil {
		return false, fmt.Errorf("re-embed relationship %q: %w", rel.EmbeddingID(), err)
	}
	if len(vecs) != 1 {
		return false, fmt.Errorf("embedder returned %d vectors for 1 text", len(vecs))
	}
	if err := s.vectors.Upsert(rel.EmbeddingID(), vecs[0], ingest.RelationshipAttrs(rel)); err != nil {
		return false, err
	}
	s.logger.Info("relationship updated", "source", source, "target", target)
	return true, nil
}

// DeleteRelationship removes exactly the directed edge (source, target)
// and its embedding. Absent edges yield (false, nil).
func (s *Service) DeleteRelationship(source, target string) (bool, error) {
	deleted, err := s.graph.DeleteEdge(source, target)
	if err != nil || !deleted {
		return deleted, err
	}
	if _, err := s.vectors.Delete(source + "->" + target); err != nil {
		return true, err
	}
	s.logger.Info("relationship deleted", "source", source, "target", target)
	return true, nil
}

// Subgraph walks breadth-first from start, bounded by maxDepth and
// maxNodes. An empty start exports the whole graph.
func (s *Service) Subgraph(start string, maxDepth, maxNodes int) graph.SubgraphResult {
	if start == "" {
		return s.graph.Export()
	}
	return s.graph.Subgraph(start, maxDepth, maxNodes)
}

// Statistics returns entity/relationship counts and a name sample.
func (s *Service) Statistics() graph.Statistics {
	return s.graph.Statistics()
}

// SimilarEntities ranks stored embeddings against the query text.
func (s *Service) SimilarEntities(ctx context.Context, text string, topK int) ([]vector.Match, error) {
	vecs, err := s.cfg.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(vecs))
	}
	return s.vectors.Query(vecs[0], topK)
}

// ClearCache drops every extraction-cache entry and returns how many were
// removed.
func (s *Service) ClearCache() int {
	return s.cache.Clear()
}

// CacheStats returns extraction-cache counters.
func (s *Service) CacheStats() extract.CacheStats {
	return s.cache.Stats()
}

// DocStatus returns the processing record for one document.
func (s *Service) DocStatus(docID string) (model.DocProcessingStatus, bool, error) {
	return s.status.Get(docID)
}

// DocStatusCounts returns document counts per processing state.
func (s *Service) DocStatusCounts() (map[model.DocStatus]int, error) {
	return s.status.CountByStatus()
}

// SystemInfo is a point-in-time operational snapshot of the engine.
type SystemInfo struct {
	Version       string             `json:"version"`
	DataDir       string             `json:"data_dir,omitempty"`
	InMemory      bool               `json:"in_memory"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	EmbeddingDim  int                `json:"embedding_dim"`
	Entities      int                `json:"entities"`
	Relationships int                `json:"relationships"`
	Embeddings    int                `json:"embeddings"`
	Chunks        int                `json:"chunks"`
	Cache         extract.CacheStats `json:"cache"`
}

// SystemInfo reports version, storage mode, store sizes, and cache
// counters.
func (s *Service) SystemInfo() (SystemInfo, error) {
	chunkCount, err := s.chunks.Count()
	if err != nil {
		return SystemInfo{}, err
	}
	return SystemInfo{
		Version:       ServiceVersion,
		DataDir:       s.disk.Path(),
		InMemory:      s.disk.InMemory(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		EmbeddingDim:  s.vectors.Dimension(),
		Entities:      s.graph.NodeCount(),
		Relationships: s.graph.EdgeCount(),
		Embeddings:    s.vectors.Len(),
		Chunks:        chunkCount,
		Cache:         s.cache.Stats(),
	}, nil
}

func entityFromAttrs(name string, attrs map[string]string) model.Entity {
	return model.Entity{
		Name:        name,
		Type:        attrs["type"],
		Description: attrs["description"],
		ChunkID:     attrs["chunk_id"],
		DocID:       attrs["doc_id"],
	}
}

func relationshipFromAttrs(source, target string, attrs map[string]string) model.Relationship {
	return model.Relationship{
		Source:      source,
		Target:      target,
		Relation:    attrs["relation"],
		Description: attrs["description"],
		ChunkID:     attrs["chunk_id"],
		DocID:       attrs["doc_id"],
	}
}
