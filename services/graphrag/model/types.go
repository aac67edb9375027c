// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model holds the shared data types of the knowledge-graph engine.
//
// Graph model:
//
//   - Entity: a named node with a type and a free-text description.
//   - Relationship: a directed edge keyed by the ordered (source, target)
//     pair. Direction is meaningful: (A,B) and (B,A) are distinct edges.
//   - Chunk: a token-bounded slice of a source document, identified
//     by (document id, chunk order index).
//
// Documents move through a small status machine (PENDING, PROCESSING,
// then PROCESSED or FAILED); the terminal states are never re-entered
// automatically.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Chunk is an immutable token-bounded segment of a document.
type Chunk struct {
	Content         string `json:"content"`
	Tokens          int    `json:"tokens"`
	ChunkOrderIndex int    `json:"chunk_order_index"`
}

// StoredChunk is a chunk as persisted in the chunk store, carrying its id
// and owning document. The id doubles as the storage key and is filled in
// on read rather than serialized twice.
type StoredChunk struct {
	ID              string `json:"-"`
	Content         string `json:"content"`
	Tokens          int    `json:"tokens"`
	ChunkOrderIndex int    `json:"chunk_order_index"`
	FullDocID       string `json:"full_doc_id"`
}

// Entity is a named node in the knowledge graph. Name is the unique key
// within a graph; inserting a second entity with the same name upserts the
// existing node.
type Entity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	ChunkID     string `json:"chunk_id,omitempty"`
	DocID       string `json:"doc_id,omitempty"`
}

// Relationship is a directed edge between two entities, keyed by the
// ordered (Source, Target) pair.
type Relationship struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Relation    string `json:"relation"`
	Description string `json:"description"`
	ChunkID     string `json:"chunk_id,omitempty"`
	DocID       string `json:"doc_id,omitempty"`
}

// EmbeddingID returns the vector-store id of the relationship.
func (r Relationship) EmbeddingID() string {
	return r.Source + "->" + r.Target
}

// Extraction is the structured output of one entity-extraction call.
type Extraction struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// DocStatus is the processing state of a document.
type DocStatus string

const (
	DocStatusPending    DocStatus = "PENDING"
	DocStatusProcessing DocStatus = "PROCESSING"
	DocStatusProcessed  DocStatus = "PROCESSED"
	DocStatusFailed     DocStatus = "FAILED"
)

// Valid reports whether s is one of the known states.
func (s DocStatus) Valid() bool {
	switch s {
	case DocStatusPending, DocStatusProcessing, DocStatusProcessed, DocStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s DocStatus) Terminal() bool {
	return s == DocStatusProcessed || s == DocStatusFailed
}

// DocProcessingStatus is the per-document processing record.
type DocProcessingStatus struct {
	ContentSummary string    `json:"content_summary"`
	ContentLength  int       `json:"content_length"`
	Status         DocStatus `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ChunksCount    int       `json:"chunks_count,omitempty"`
	Error          string    `json:"error,omitempty"`
	FilePath       string    `json:"file_path,omitempty"`
}

// QueryMode selects the retrieval strategy for a query.
type QueryMode string

const (
	// QueryModeNaive scores stored chunks by keyword overlap with the query.
	QueryModeNaive QueryMode = "naive"

	// QueryModeLocal retrieves entities whose name or description matches
	// the query.
	QueryModeLocal QueryMode = "local"

	// QueryModeGlobal retrieves relationships touching matched entities or
	// whose description matches the query.
	QueryModeGlobal QueryMode = "global"

	// QueryModeHybrid combines the local and global context blocks.
	QueryModeHybrid QueryMode = "hybrid"
)

// Valid reports whether m is one of the known query modes.
func (m QueryMode) Valid() bool {
	switch m {
	case QueryModeNaive, QueryModeLocal, QueryModeGlobal, QueryModeHybrid:
		return true
	}
	return false
}

// ParseQueryMode converts a wire string into a QueryMode.
func ParseQueryMode(s string) (QueryMode, error) {
	switch QueryMode(s) {
	case QueryModeNaive, QueryModeLocal, QueryModeGlobal, QueryModeHybrid:
		return QueryMode(s), nil
	}
	return "", fmt.Errorf("unsupported query mode %q", s)
}

// DocID derives the stable document identifier from raw content.
func DocID(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the stable chunk identifier from the parent document id
// and the chunk order index.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// ContentSummary truncates content for display in status records.
func ContentSummary(content string, maxLength int) string {
	if len(content) <= maxLength {
		return content
	}
	return content[:maxLength] + "..."
}
