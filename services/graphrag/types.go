// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphrag

import (
	"github.com/AleutianAI/Adak/services/graphrag/ingest"
	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// InsertTextRequest is the body of POST /documents/text.
type InsertTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// InsertTextResponse reports the pipeline outcome for one document.
type InsertTextResponse struct {
	DocID        string          `json:"doc_id"`
	Status       model.DocStatus `json:"status"`
	ChunksCount  int             `json:"chunks_count"`
	FailedChunks int             `json:"failed_chunks"`
	Skipped      bool            `json:"skipped,omitempty"`
	Manifest     ingest.Manifest `json:"manifest"`
}

// QueryRequest is the body of POST /query. Mode must be one of the four
// retrieval modes; TopK defaults to 10.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	Mode  string `json:"mode" binding:"omitempty,oneof=naive local global hybrid"`
	TopK  int    `json:"top_k" binding:"omitempty,min=1,max=100"`
}

// QueryResponse carries the answer and the mode that produced it.
type QueryResponse struct {
	Answer string `json:"answer"`
	Mode   string `json:"mode"`
}

// SubgraphQuery binds the GET /graph query parameters. An empty Start
// exports the full graph.
type SubgraphQuery struct {
	Start    string `form:"start"`
	MaxDepth int    `form:"max_depth" binding:"omitempty,min=1,max=5"`
	MaxNodes int    `form:"max_nodes" binding:"omitempty,min=10,max=1000"`
}

// UpdateEntityRequest is the body of PUT /entities/:name. Nil fields are
// left unchanged.
type UpdateEntityRequest struct {
	Type        *string `json:"type"`
	Description *string `json:"description"`
}

// UpdateRelationshipRequest is the body of
// PUT /relationships/:source/:target.
type UpdateRelationshipRequest struct {
	Relation    *string `json:"relation"`
	Description *string `json:"description"`
}

// DeletedResponse acknowledges a delete.
type DeletedResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// UpdatedResponse acknowledges an update.
type UpdatedResponse struct {
	Updated bool   `json:"updated"`
	ID      string `json:"id"`
}

// CacheClearResponse reports how many cache entries were dropped.
type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}

// StatusCountsResponse is the body of GET /documents/statuses.
type StatusCountsResponse struct {
	Counts map[model.DocStatus]int `json:"counts"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
