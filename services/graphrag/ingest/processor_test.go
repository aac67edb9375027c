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

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Adak/services/graphrag/chunk"
	"github.com/AleutianAI/Adak/services/graphrag/extract"
	"github.com/AleutianAI/Adak/services/graphrag/graph"
	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/storage"
	"github.com/AleutianAI/Adak/services/graphrag/vector"
	"github.com/AleutianAI/Adak/services/llm"
)

const testEmbedDim = 4

// wordTokenizer maps whitespace-separated words to stable integer ids so
// chunk boundaries fall on word counts.
type wordTokenizer struct {
	vocab map[string]int
	words []string
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{vocab: make(map[string]int)}
}

func (t *wordTokenizer) Encode(text string) []int {
	fields := strings.Fields(text)
	ids := make([]int, 0, len(fields))
	for _, w := range fields {
		id, ok := t.vocab[w]
		if !ok {
			id = len(t.words)
			t.vocab[w] = id
			t.words = append(t.words, w)
		}
		ids = append(ids, id)
	}
	return ids
}

func (t *wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		parts = append(parts, t.words[id])
	}
	return strings.Join(parts, " ")
}

// script pairs a prompt substring with the canned completion for it.
type script struct {
	match    string
	response string
	err      error
}

type scriptedLLM struct {
	mu      sync.Mutex
	calls   int
	scripts []script
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, sc := range s.scripts {
		if strings.Contains(prompt, sc.match) {
			return sc.response, sc.err
		}
	}
	return "", fmt.Errorf("no scripted response for prompt")
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubEmbedder struct {
	dim   int
	err   error
	mu    sync.Mutex
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type pipeline struct {
	proc    *Processor
	llm     *scriptedLLM
	emb     *stubEmbedder
	graph   *graph.Store
	vectors *vector.Store
	chunks  *ChunkStore
	status  *StatusStore
}

func newTestPipeline(t *testing.T, scripted *scriptedLLM, opts ...Option) *pipeline {
	t.Helper()
	disk, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })

	chunks, err := NewChunkStore(disk)
	require.NoError(t, err)
	status, err := NewStatusStore(disk)
	require.NoError(t, err)
	graphStore, err := graph.NewStore()
	require.NoError(t, err)
	vectors, err := vector.NewStore(testEmbedDim)
	require.NoError(t, err)
	extractor, err := extract.NewExtractor(scripted, extract.NewCache())
	require.NoError(t, err)

	emb := &stubEmbedder{dim: testEmbedDim}
	proc, err := NewProcessor(newWordTokenizer(), extractor, emb, graphStore, vectors, chunks, status, opts...)
	require.NoError(t, err)

	return &pipeline{
		proc:    proc,
		llm:     scripted,
		emb:     emb,
		graph:   graphStore,
		vectors: vectors,
		chunks:  chunks,
		status:  status,
	}
}

const chainExtraction = `{
  "entities": [
    {"name": "A", "type": "person", "description": "works with B"},
    {"name": "B", "type": "person", "description": "reports to C"},
    {"name": "C", "type": "person", "description": "a manager"}
  ],
  "relationships": [
    {"source": "A", "target": "B", "relation": "works with", "description": "colleagues"},
    {"source": "B", "target": "C", "relation": "reports to", "description": "line manager"}
  ]
}`

// TestProcessTextEndToEnd ingests one document and walks the resulting
// graph: three entities, two directed edges, five embeddings, and a
// PROCESSED status record.
func TestProcessTextEndToEnd(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})

	content := "A works with B. B reports to C."
	res, err := p.proc.ProcessText(context.Background(), content)
	require.NoError(t, err)

	docID := model.DocID(content)
	assert.Equal(t, docID, res.DocID)
	assert.Equal(t, model.DocStatusProcessed, res.Status)
	assert.False(t, res.Skipped)

	require.Len(t, res.Manifest.Chunks, 1)
	assert.Equal(t, 1, res.Manifest.Succeeded)
	assert.Equal(t, 0, res.Manifest.Failed)
	assert.Equal(t, 3, res.Manifest.Chunks[0].Entities)
	assert.Equal(t, 2, res.Manifest.Chunks[0].Relationships)
	assert.False(t, res.Manifest.Chunks[0].ParseFailed)

	sub := p.graph.Subgraph("A", 2, 100)
	ids := make([]string, 0, len(sub.Nodes))
	for _, n := range sub.Nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"A", "B", "C"}, ids)
	require.Len(t, sub.Edges, 2)
	assert.True(t, p.graph.HasEdge("A", "B"))
	assert.True(t, p.graph.HasEdge("B", "C"))
	assert.False(t, p.graph.HasEdge("B", "A"))

	assert.Equal(t, 5, p.vectors.Len())
	assert.True(t, p.vectors.Has("A"))
	assert.True(t, p.vectors.Has("A->B"))
	assert.True(t, p.vectors.Has("B->C"))
	assert.Equal(t, 1, p.emb.callCount())

	st, found, err := p.status.Get(docID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.DocStatusProcessed, st.Status)
	assert.Equal(t, 1, st.ChunksCount)
	assert.Equal(t, "text_input", st.FilePath)
	assert.Empty(t, st.Error)

	stored, found, err := p.chunks.Get(model.ChunkID(docID, 0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, content, stored.Content)
}

// TestProcessTextStampsProvenance verifies entities carry their chunk
// and document ids into graph attributes.
func TestProcessTextStampsProvenance(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "", response: `{"entities": [{"name": "Alpha", "type": "concept", "description": "first"}], "relationships": []}`},
	}})

	content := "alpha leads the list"
	res, err := p.proc.ProcessText(context.Background(), content)
	require.NoError(t, err)
	require.Equal(t, model.DocStatusProcessed, res.Status)

	docID := model.DocID(content)
	attrs, ok := p.graph.GetNode("Alpha")
	require.True(t, ok)
	assert.Equal(t, model.ChunkID(docID, 0), attrs["chunk_id"])
	assert.Equal(t, docID, attrs["doc_id"])
	assert.Equal(t, "concept", attrs["type"])
}

// TestProcessTextEnsuresEdgeEndpoints verifies relationship endpoints
// without an extracted entity record become bare nodes.
func TestProcessTextEnsuresEdgeEndpoints(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "", response: `{
  "entities": [{"name": "A", "type": "person", "description": "mentioned"}],
  "relationships": [{"source": "A", "target": "D", "relation": "knows", "description": "in passing"}]
}`},
	}})

	res, err := p.proc.ProcessText(context.Background(), "A knows D")
	require.NoError(t, err)
	require.Equal(t, model.DocStatusProcessed, res.Status)

	attrs, ok := p.graph.GetNode("D")
	require.True(t, ok)
	assert.Equal(t, "D", attrs["name"])
	assert.True(t, p.graph.HasEdge("A", "D"))
	assert.True(t, p.vectors.Has("A->D"))
}

// TestProcessTextEmptyContent verifies an empty document terminates
// PROCESSED with zero chunks.
func TestProcessTextEmptyContent(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{})

	res, err := p.proc.ProcessText(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusProcessed, res.Status)
	assert.Empty(t, res.Manifest.Chunks)
	assert.Equal(t, 0, p.llm.callCount())

	st, found, err := p.status.Get(model.DocID(""))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.DocStatusProcessed, st.Status)
	assert.Equal(t, 0, st.ChunksCount)
}

// TestProcessTextIdempotentSkip verifies re-ingesting a processed
// document does not call the completion service again.
func TestProcessTextIdempotentSkip(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})

	content := "A works with B. B reports to C."
	first, err := p.proc.ProcessText(context.Background(), content)
	require.NoError(t, err)
	require.Equal(t, model.DocStatusProcessed, first.Status)
	callsAfterFirst := p.llm.callCount()

	second, err := p.proc.ProcessText(context.Background(), content)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, model.DocStatusProcessed, second.Status)
	assert.Equal(t, callsAfterFirst, p.llm.callCount())
	assert.Equal(t, 5, p.vectors.Len())
}

// TestProcessTextPartialFailure verifies one failing chunk does not sink
// the document: the manifest records the failure and the rest persists.
func TestProcessTextPartialFailure(t *testing.T) {
	backendDown := errors.New("completion backend down")
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "alpha", response: `{"entities": [{"name": "Alpha", "type": "concept", "description": "first"}], "relationships": []}`},
		{match: "beta", err: backendDown},
	}}, WithChunkOptions(chunk.Options{MaxTokens: 4, OverlapTokens: 0}))

	res, err := p.proc.ProcessText(context.Background(), "alpha one two three beta five six seven")
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusProcessed, res.Status)
	require.Len(t, res.Manifest.Chunks, 2)
	assert.Equal(t, 1, res.Manifest.Succeeded)
	assert.Equal(t, 1, res.Manifest.Failed)
	assert.False(t, res.Manifest.Chunks[0].Failed())
	assert.True(t, res.Manifest.Chunks[1].Failed())
	assert.Contains(t, res.Manifest.Chunks[1].Err, "completion backend down")

	_, ok := p.graph.GetNode("Alpha")
	assert.True(t, ok)
}

// TestProcessTextAllChunksFailed verifies the document fails when no
// chunk survives extraction, with the reason on the status record.
func TestProcessTextAllChunksFailed(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "", err: errors.New("completion backend down")},
	}}, WithChunkOptions(chunk.Options{MaxTokens: 4, OverlapTokens: 0}))

	res, err := p.proc.ProcessText(context.Background(), "alpha one two three beta five six seven")
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusFailed, res.Status)
	assert.Equal(t, 2, res.Manifest.Failed)

	st, found, err := p.status.Get(res.DocID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.DocStatusFailed, st.Status)
	assert.Equal(t, "all 2 chunks failed extraction", st.Error)
	assert.Equal(t, 0, p.graph.NodeCount())
}

// TestProcessTextParseFailureIsSoft verifies undecodable completion
// output yields an empty chunk, not a failed document.
func TestProcessTextParseFailureIsSoft(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "", response: "definitely not json"},
	}})

	res, err := p.proc.ProcessText(context.Background(), "some text to ingest")
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusProcessed, res.Status)
	require.Len(t, res.Manifest.Chunks, 1)
	assert.True(t, res.Manifest.Chunks[0].ParseFailed)
	assert.False(t, res.Manifest.Chunks[0].Failed())
	assert.Equal(t, 1, res.Manifest.Succeeded)
	assert.Equal(t, 0, p.graph.NodeCount())
	assert.Equal(t, 0, p.vectors.Len())
}

// TestProcessTextEmbedFailure verifies an embedding outage fails the
// document through the status record, not the error return.
func TestProcessTextEmbedFailure(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	p.emb.err = errors.New("embedding backend down")

	res, err := p.proc.ProcessText(context.Background(), "A works with B. B reports to C.")
	require.NoError(t, err)

	assert.Equal(t, model.DocStatusFailed, res.Status)
	st, found, err := p.status.Get(res.DocID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.DocStatusFailed, st.Status)
	assert.Contains(t, st.Error, "embed")
	assert.Equal(t, 0, p.vectors.Len())
}

// TestProcessTextCancelledContext verifies cancellation surfaces as an
// error and leaves the document PROCESSING for a retry.
func TestProcessTextCancelledContext(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	content := "A works with B. B reports to C."
	_, err := p.proc.ProcessText(ctx, content)
	require.ErrorIs(t, err, context.Canceled)

	st, found, err := p.status.Get(model.DocID(content))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.DocStatusProcessing, st.Status)
}

// TestProcessFile verifies file ingestion stamps the path as source.
func TestProcessFile(t *testing.T) {
	p := newTestPipeline(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("A works with B. B reports to C."), 0o644))

	res, err := p.proc.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusProcessed, res.Status)

	st, found, err := p.status.Get(res.DocID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, path, st.FilePath)

	t.Run("missing file", func(t *testing.T) {
		_, err := p.proc.ProcessFile(context.Background(), filepath.Join(dir, "absent.txt"))
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0o644))
		_, err := p.proc.ProcessFile(context.Background(), empty)
		require.ErrorContains(t, err, "empty content")
	})
}

// TestNewProcessorValidation verifies misconfiguration is rejected at
// construction.
func TestNewProcessorValidation(t *testing.T) {
	disk, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })

	chunks, err := NewChunkStore(disk)
	require.NoError(t, err)
	status, err := NewStatusStore(disk)
	require.NoError(t, err)
	graphStore, err := graph.NewStore()
	require.NoError(t, err)
	vectors, err := vector.NewStore(testEmbedDim)
	require.NoError(t, err)
	extractor, err := extract.NewExtractor(&scriptedLLM{}, nil)
	require.NoError(t, err)
	emb := &stubEmbedder{dim: testEmbedDim}
	tok := newWordTokenizer()

	t.Run("nil tokenizer", func(t *testing.T) {
		_, err := NewProcessor(nil, extractor, emb, graphStore, vectors, chunks, status)
		require.True(t, model.IsConfigurationError(err))
	})

	t.Run("nil extractor", func(t *testing.T) {
		_, err := NewProcessor(tok, nil, emb, graphStore, vectors, chunks, status)
		require.True(t, model.IsConfigurationError(err))
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewProcessor(tok, extractor, nil, graphStore, vectors, chunks, status)
		require.True(t, model.IsConfigurationError(err))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := NewProcessor(tok, extractor, &stubEmbedder{dim: 3}, graphStore, vectors, chunks, status)
		require.True(t, model.IsConfigurationError(err))
		require.ErrorContains(t, err, "3-dimensional")
	})

	t.Run("bad chunk options", func(t *testing.T) {
		_, err := NewProcessor(tok, extractor, emb, graphStore, vectors, chunks, status,
			WithChunkOptions(chunk.Options{MaxTokens: 0}))
		require.True(t, model.IsConfigurationError(err))
	})

	t.Run("bad concurrency", func(t *testing.T) {
		_, err := NewProcessor(tok, extractor, emb, graphStore, vectors, chunks, status,
			WithMaxConcurrentExtractions(0))
		require.True(t, model.IsConfigurationError(err))
	})
}
