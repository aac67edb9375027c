// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract turns chunk text into structured entities and
// relationships via an external completion service, memoizing raw
// responses per chunk so re-indexing is cheap.
package extract

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/llm"
)

// cacheKeyPrefix namespaces extraction entries so the cache could later
// hold other response families without key collisions.
const cacheKeyPrefix = "entity_extract_"

// CacheKey returns the cache key under which a chunk's raw completion
// response is stored.
func CacheKey(chunkID string) string {
	return cacheKeyPrefix + chunkID
}

// Result is the per-chunk outcome of extraction. A hard completion failure
// is reported through the error return of ExtractChunk instead, so a Result
// always carries a usable (possibly empty) extraction.
type Result struct {
	ChunkID    string
	Extraction model.Extraction
	// ParseFailed marks a response that survived the completion call but
	// could not be decoded. The extraction is empty in that case.
	ParseFailed bool
}

type Extractor struct {
	llm    llm.LLMClient
	cache  *Cache
	prompt string
	params llm.GenerationParams
	logger *slog.Logger
}

// Option adjusts an Extractor at construction time.
type Option func(*Extractor)

// WithPrompt replaces the default extraction prompt template. The template
// must contain the {content} placeholder.
func WithPrompt(template string) Option {
	return func(e *Extractor) { e.prompt = template }
}

// WithParams sets the generation parameters for extraction calls.
func WithParams(params llm.GenerationParams) Option {
	return func(e *Extractor) { e.params = params }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor builds an Extractor around a completion client. A nil cache
// disables memoization; every call then reaches the completion service.
func NewExtractor(client llm.LLMClient, cache *Cache, opts ...Option) (*Extractor, error) {
	if client == nil {
		return nil, &model.ConfigurationError{Field: "llm", Reason: "completion client is required"}
	}
	e := &Extractor{
		llm:    client,
		cache:  cache,
		prompt: DefaultPrompt,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Cache returns the extractor's cache, which may be nil.
func (e *Extractor) Cache() *Cache {
	return e.cache
}

// ExtractChunk extracts entities and relationships from one chunk.
//
// Description:
//
//	Renders the prompt, obtains the raw response through the cache (keyed by
//	chunk identity), then parses and normalizes it. A completion failure is
//	a hard error. A response that cannot be parsed is a soft failure: the
//	cached entry is dropped so a retry re-attempts the call, and the chunk
//	yields an empty extraction flagged ParseFailed.
//
// Inputs:
//   - ctx: passed through to the completion client.
//   - chunkID: stable chunk identity, also the basis of the cache key.
//   - content: chunk text.
//
// Outputs:
//   - Result: the chunk's extraction, possibly empty.
//   - error: an ExtractionCallError when the completion service failed.
//
// Thread Safety: safe for concurrent use across chunks; calls for the same
// chunk collapse onto one completion invocation when caching is enabled.
func (e *Extractor) ExtractChunk(ctx context.Context, chunkID, content string) (Result, error) {
	key := CacheKey(chunkID)
	prompt := RenderPrompt(e.prompt, content)

	raw, err := e.generate(ctx, key, prompt)
	if err != nil {
		return Result{}, &model.ExtractionCallError{ChunkID: chunkID, Err: err}
	}

	parsed, err := ParseExtraction(raw)
	if err != nil {
		if e.cache != nil {
			e.cache.Forget(key)
		}
		e.logger.Warn("extraction response did not parse, chunk yields no records",
			"chunk_id", chunkID, "error", err)
		return Result{ChunkID: chunkID, ParseFailed: true}, nil
	}

	return Result{ChunkID: chunkID, Extraction: NormalizeExtraction(parsed)}, nil
}

func (e *Extractor) generate(ctx context.Context, key, prompt string) (string, error) {
	if e.cache == nil {
		return e.llm.Generate(ctx, prompt, e.params)
	}
	return e.cache.GetOrCompute(ctx, key, func(ctx context.Context) (string, error) {
		return e.llm.Generate(ctx, prompt, e.params)
	})
}
