// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest runs the document pipeline: chunk, extract, merge, and
// persist into the graph, vector, chunk, and status stores.
//
// Each document moves through PENDING, PROCESSING, and exactly one of
// PROCESSED or FAILED. Document-level failures are reported through the
// status record and the per-chunk manifest, not through the error return;
// the error return is reserved for failures of the status tracking
// itself, where there is no record left to report through.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/Adak/services/graphrag/chunk"
	"github.com/AleutianAI/Adak/services/graphrag/extract"
	"github.com/AleutianAI/Adak/services/graphrag/graph"
	"github.com/AleutianAI/Adak/services/graphrag/merge"
	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/token"
	"github.com/AleutianAI/Adak/services/graphrag/vector"
	"github.com/AleutianAI/Adak/services/llm"
)

// DefaultMaxConcurrentExtractions caps in-flight completion calls per
// document. Prevents rate limiting.
const DefaultMaxConcurrentExtractions = 4

// contentSummaryLength is the truncation length of the stored summary.
const contentSummaryLength = 100

// textInputSource marks documents ingested as raw text rather than files.
const textInputSource = "text_input"

// ChunkResult is the per-chunk outcome of one pipeline run.
type ChunkResult struct {
	ChunkID       string `json:"chunk_id"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`

	// ParseFailed marks a chunk whose completion output did not decode.
	// The chunk contributes no records but is not counted as failed.
	ParseFailed bool `json:"parse_failed,omitempty"`

	// Err is the completion-call failure for this chunk, if any.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the chunk's extraction call failed outright.
func (r ChunkResult) Failed() bool {
	return r.Err != ""
}

// Manifest aggregates per-chunk outcomes for one document.
type Manifest struct {
	DocID     string        `json:"doc_id"`
	Chunks    []ChunkResult `json:"chunks"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// Result is the pipeline outcome for one document.
type Result struct {
	DocID    string          `json:"doc_id"`
	Status   model.DocStatus `json:"status"`
	Skipped  bool            `json:"skipped,omitempty"`
	Manifest Manifest        `json:"manifest"`
}

// Processor owns one document pipeline and the stores it writes to.
type Processor struct {
	tokenizer   token.Tokenizer
	extractor   *extract.Extractor
	embedder    llm.Embedder
	graph       *graph.Store
	vectors     *vector.Store
	chunks      *ChunkStore
	status      *StatusStore
	chunkOpts   chunk.Options
	maxParallel int
	sem         *Semaphore
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunkOptions overrides the default chunk window configuration.
func WithChunkOptions(opts chunk.Options) Option {
	return func(p *Processor) { p.chunkOpts = opts }
}

// WithMaxConcurrentExtractions caps in-flight completion calls.
func WithMaxConcurrentExtractions(n int) Option {
	return func(p *Processor) { p.maxParallel = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor builds a pipeline over the given capabilities and stores.
// Every dependency is validated here so a misconfiguration surfaces at
// startup instead of deep inside a pipeline run.
func NewProcessor(
	tokenizer token.Tokenizer,
	extractor *extract.Extractor,
	embedder llm.Embedder,
	graphStore *graph.Store,
	vectorStore *vector.Store,
	chunkStore *ChunkStore,
	statusStore *StatusStore,
	opts ...Option,
) (*Processor, error) {
	p := &Processor{
		tokenizer:   tokenizer,
		extractor:   extractor,
		embedder:    embedder,
		graph:       graphStore,
		vectors:     vectorStore,
		chunks:      chunkStore,
		status:      statusStore,
		chunkOpts:   chunk.DefaultOptions(),
		maxParallel: DefaultMaxConcurrentExtractions,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if p.tokenizer == nil {
		return nil, &model.ConfigurationError{Field: "tokenizer", Reason: "tokenizer is required"}
	}
	if p.extractor == nil {
		return nil, &model.ConfigurationError{Field: "extractor", Reason: "extractor is required"}
	}
	if p.embedder == nil {
		return nil, &model.ConfigurationError{Field: "embedder", Reason: "embedding service is required"}
	}
	if p.graph == nil {
		return nil, &model.ConfigurationError{Field: "graph_store", Reason: "graph store is required"}
	}
	if p.vectors == nil {
		return nil, &model.ConfigurationError{Field: "vector_store", Reason: "vector store is required"}
	}
	if p.chunks == nil {
		return nil, &model.ConfigurationError{Field: "chunk_store", Reason: "chunk store is required"}
	}
	if p.status == nil {
		return nil, &model.ConfigurationError{Field: "status_store", Reason: "status store is required"}
	}
	if err := p.chunkOpts.Validate(); err != nil {
		return nil, err
	}
	if p.maxParallel <= 0 {
		return nil, &model.ConfigurationError{Field: "max_concurrent_extractions", Reason: "must be positive"}
	}
	if got, want := p.embedder.Dimension(), p.vectors.Dimension(); got != want {
		return nil, &model.ConfigurationError{
			Field:  "embedder",
			Reason: fmt.Sprintf("produces %d-dimensional vectors, store expects %d", got, want),
		}
	}
	p.sem = NewSemaphore(p.maxParallel)
	return p, nil
}

// ProcessText runs the full pipeline on raw text.
//
// Description:
//
//	Derives the document id from the content hash, records the document
//	as PENDING then PROCESSING, splits the content into token-bounded
//	chunks, extracts entities and relationships per chunk with bounded
//	concurrency, merges duplicates, and persists graph nodes, edges, and
//	embeddings. The per-chunk manifest in the returned Result records
//	which chunks contributed records, which produced undecodable output,
//	and which failed their completion call.
//
// Inputs:
//   - ctx: Context honored at completion and embedding call boundaries.
//   - content: Raw document text. Empty content yields a PROCESSED
//     document with zero chunks.
//
// Outputs:
//   - Result: Document id, terminal status, and per-chunk manifest. A
//     document whose every chunk failed its completion call, or whose
//     graph/vector persistence failed, ends FAILED with the reason on
//     its status record; that is not an error return.
//   - error: Non-nil only when the status record itself cannot be read
//     or written, or the run was cancelled before reaching a terminal
//     state.
//
// Thread Safety: Safe for concurrent use; the stores serialize writes.
func (p *Processor) ProcessText(ctx context.Context, content string) (Result, error) {
	return p.process(ctx, content, textInputSource)
}

// ProcessFile reads path and runs the full pipeline on its content. The
// stored status record carries the path as the document source.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Result{}, fmt.Errorf("empty content in file %s", path)
	}
	return p.process(ctx, string(data), path)
}

func (p *Processor) process(ctx context.Context, content, source string) (Result, error) {
	docID := model.DocID(content)
	log := p.logger.With("doc_id", docID)

	existing, known, err := p.status.Get(docID)
	if err != nil {
		return Result{}, err
	}
	if known && existing.Status == model.DocStatusProcessed {
		log.Info("document already processed, skipping")
		return Result{
			DocID:    docID,
			Status:   existing.Status,
			Skipped:  true,
			Manifest: emptyManifest(docID),
		}, nil
	}

	now := time.Now().UTC()
	st := model.DocProcessingStatus{
		ContentSummary: model.ContentSummary(content, contentSummaryLength),
		ContentLength:  utf8.RuneCountInString(content),
		Status:         model.DocStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		FilePath:       source,
	}
	if known {
		st.CreatedAt = existing.CreatedAt
	}
	if err := p.status.Put(docID, st); err != nil {
		return Result{}, err
	}
	if err := p.advance(docID, &st, model.DocStatusProcessing); err != nil {
		return Result{}, err
	}

	chunks, err := chunk.Split(p.tokenizer, content, p.chunkOpts)
	if err != nil {
		p.failDoc(docID, &st, err.Error())
		return Result{DocID: docID, Status: model.DocStatusFailed, Manifest: emptyManifest(docID)}, nil
	}

	stored := make([]model.StoredChunk, len(chunks))
	for i, c := range chunks {
		sc := model.StoredChunk{
			ID:              model.ChunkID(docID, c.ChunkOrderIndex),
			Content:         c.Content,
			Tokens:          c.Tokens,
			ChunkOrderIndex: c.ChunkOrderIndex,
			FullDocID:       docID,
		}
		if err := p.chunks.Put(sc); err != nil {
			p.failDoc(docID, &st, err.Error())
			return Result{DocID: docID, Status: model.DocStatusFailed, Manifest: emptyManifest(docID)}, nil
		}
		stored[i] = sc
	}
	st.ChunksCount = len(stored)
	if err := p.status.Put(docID, st); err != nil {
		return Result{}, err
	}

	if len(stored) == 0 {
		if err := p.advance(docID, &st, model.DocStatusProcessed); err != nil {
			return Result{}, err
		}
		log.Info("document produced no chunks")
		return Result{DocID: docID, Status: model.DocStatusProcessed, Manifest: emptyManifest(docID)}, nil
	}

	results, callErrs := p.extractAll(ctx, stored)
	if err := ctx.Err(); err != nil {
		// Cancelled mid-run: leave the document PROCESSING for a retry.
		return Result{}, err
	}

	manifest := Manifest{DocID: docID, Chunks: make([]ChunkResult, 0, len(stored))}
	var entities []model.Entity
	var relationships []model.Relationship
	for i, sc := range stored {
		cr := ChunkResult{ChunkID: sc.ID}
		if callErrs[i] != nil {
			cr.Err = callErrs[i].Error()
			log.Warn("chunk extraction failed, continuing without it",
				"chunk_id", sc.ID, "error", callErrs[i])
		} else {
			res := results[i]
			cr.ParseFailed = res.ParseFailed
			cr.Entities = len(res.Extraction.Entities)
			cr.Relationships = len(res.Extraction.Relationships)
			for _, e := range res.Extraction.Entities {
				e.ChunkID = sc.ID
				e.DocID = docID
				entities = append(entities, e)
			}
			for _, r := range res.Extraction.Relationships {
				r.ChunkID = sc.ID
				r.DocID = docID
				relationships = append(relationships, r)
			}
		}
		if cr.Failed() {
			manifest.Failed++
		} else {
			manifest.Succeeded++
		}
		manifest.Chunks = append(manifest.Chunks, cr)
	}

	if manifest.Failed == len(stored) {
		p.failDoc(docID, &st, fmt.Sprintf("all %d chunks failed extraction", len(stored)))
		return Result{DocID: docID, Status: model.DocStatusFailed, Manifest: manifest}, nil
	}

	entities = merge.MergeEntities(entities)
	relationships = merge.MergeRelationships(relationships)

	if err := p.persistRecords(ctx, entities, relationships); err != nil {
		p.failDoc(docID, &st, err.Error())
		return Result{DocID: docID, Status: model.DocStatusFailed, Manifest: manifest}, nil
	}

	if err := p.advance(docID, &st, model.DocStatusProcessed); err != nil {
		return Result{}, err
	}
	log.Info("document processed",
		"chunks", len(stored),
		"failed_chunks", manifest.Failed,
		"entities", len(entities),
		"relationships", len(relationships))
	return Result{DocID: docID, Status: model.DocStatusProcessed, Manifest: manifest}, nil
}

// extractAll fans extraction out across chunks, bounded by the semaphore.
// Results and errors are indexed by chunk position so the manifest order
// matches chunk order regardless of completion order.
func (p *Processor) extractAll(ctx context.Context, stored []model.StoredChunk) ([]extract.Result, []error) {
	results := make([]extract.Result, len(stored))
	callErrs := make([]error, len(stored))
	var wg sync.WaitGroup
	for i := range stored {
		wg.Add(1)
		go func(i int, sc model.StoredChunk) {
			defer wg.Done()
			if err := p.sem.Acquire(ctx); err != nil {
				callErrs[i] = err
				return
			}
			defer p.sem.Release()
			results[i], callErrs[i] = p.extractor.ExtractChunk(ctx, sc.ID, sc.Content)
		}(i, stored[i])
	}
	wg.Wait()
	return results, callErrs
}

// persistRecords writes merged records to the graph and vector stores.
// Edge endpoints missing from the entity list are created as bare nodes
// first, since the graph store rejects edges to absent nodes.
func (p *Processor) persistRecords(ctx context.Context, entities []model.Entity, relationships []model.Relationship) error {
	kept := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Name == "" {
			continue
		}
		if err := p.graph.AddNode(e.Name, EntityAttrs(e)); err != nil {
			return err
		}
		kept = append(kept, e)
	}

	keptRels := make([]model.Relationship, 0, len(relationships))
	for _, r := range relationships {
		if r.Source == "" || r.Target == "" {
			continue
		}
		for _, endpoint := range []string{r.Source, r.Target} {
			if !p.graph.HasNode(endpoint) {
				if err := p.graph.AddNode(endpoint, map[string]string{"name": endpoint}); err != nil {
					return err
				}
			}
		}
		if err := p.graph.AddEdge(r.Source, r.Target, RelationshipAttrs(r)); err != nil {
			return err
		}
		keptRels = append(keptRels, r)
	}

	texts := make([]string, 0, len(kept)+len(keptRels))
	for _, e := range kept {
		texts = append(texts, EntityEmbeddingText(e))
	}
	for _, r := range keptRels {
		texts = append(texts, RelationshipEmbeddingText(r))
	}
	if len(texts) == 0 {
		return nil
	}
	vecs, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	for i, e := range kept {
		if err := p.vectors.Upsert(e.Name, vecs[i], EntityAttrs(e)); err != nil {
			return err
		}
	}
	offset := len(kept)
	for i, r := range keptRels {
		if err := p.vectors.Upsert(r.EmbeddingID(), vecs[offset+i], RelationshipAttrs(r)); err != nil {
			return err
		}
	}
	return nil
}

// advance moves the status record to the given state and persists it.
func (p *Processor) advance(docID string, st *model.DocProcessingStatus, to model.DocStatus) error {
	st.Status = to
	st.UpdatedAt = time.Now().UTC()
	return p.status.Put(docID, *st)
}

// failDoc records the terminal FAILED state with a human-readable reason.
// The write is best-effort: if the status store itself is down there is
// nothing left to record to, so the failure is only logged.
func (p *Processor) failDoc(docID string, st *model.DocProcessingStatus, reason string) {
	st.Status = model.DocStatusFailed
	st.Error = reason
	st.UpdatedAt = time.Now().UTC()
	if err := p.status.Put(docID, *st); err != nil {
		p.logger.Error("failed to record document failure", "doc_id", docID, "error", err)
	}
}

func emptyManifest(docID string) Manifest {
	return Manifest{DocID: docID, Chunks: []ChunkResult{}}
}

// EntityAttrs renders an entity as graph-node attributes. The same map
// doubles as vector-store metadata for the entity's embedding.
func EntityAttrs(e model.Entity) map[string]string {
	attrs := map[string]string{
		"name":        e.Name,
		"type":        e.Type,
		"description": e.Description,
	}
	if e.ChunkID != "" {
		attrs["chunk_id"] = e.ChunkID
	}
	if e.DocID != "" {
		attrs["doc_id"] = e.DocID
	}
	return attrs
}

// RelationshipAttrs renders a relationship as graph-edge attributes and
// vector-store metadata.
func RelationshipAttrs(r model.Relationship) map[string]string {
	attrs := map[string]string{
		"source":      r.Source,
		"target":      r.Target,
		"relation":    r.Relation,
		"description": r.Description,
	}
	if r.ChunkID != "" {
		attrs["chunk_id"] = r.ChunkID
	}
	if r.DocID != "" {
		attrs["doc_id"] = r.DocID
	}
	return attrs
}

// EntityEmbeddingText is the text embedded for an entity.
func EntityEmbeddingText(e model.Entity) string {
	return fmt.Sprintf("%s %s", e.Name, e.Description)
}

// RelationshipEmbeddingText is the text embedded for a relationship.
func RelationshipEmbeddingText(r model.Relationship) string {
	return fmt.Sprintf("%s %s %s %s", r.Source, r.Relation, r.Target, r.Description)
}
