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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

const (
	defaultQueryTopK        = 10
	defaultSubgraphMaxDepth = 2
	defaultSubgraphMaxNodes = 100
)

// Handlers contains the HTTP handlers for the knowledge-graph engine.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleInsertText handles POST /v1/graphrag/documents/text.
//
// Description:
//
//	Runs the full ingestion pipeline on raw text and returns when the
//	document has reached a terminal status. Per-chunk failures are
//	reported in the manifest; a document whose pipeline failed is
//	reported with status FAILED, not as an HTTP error.
//
// Response:
//
//	200 OK: InsertTextResponse
//	400 Bad Request: missing text
//	500 Internal Server Error: status store failure
func (h *Handlers) HandleInsertText(c *gin.Context) {
	logger := requestLogger(c, "HandleInsertText")

	var req InsertTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), req.Text)
	if err != nil {
		logger.Error("Ingestion failed before reaching a terminal status", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INGEST_FAILED"})
		return
	}

	logger.Info("Document ingested",
		"doc_id", result.DocID, "status", result.Status,
		"chunks", len(result.Manifest.Chunks), "failed_chunks", result.Manifest.Failed)
	c.JSON(http.StatusOK, InsertTextResponse{
		DocID:        result.DocID,
		Status:       result.Status,
		ChunksCount:  len(result.Manifest.Chunks),
		FailedChunks: result.Manifest.Failed,
		Skipped:      result.Skipped,
		Manifest:     result.Manifest,
	})
}

// HandleQuery handles POST /v1/graphrag/query.
//
// Response:
//
//	200 OK: QueryResponse
//	400 Bad Request: missing query or unsupported mode
//	500 Internal Server Error: completion call failed
func (h *Handlers) HandleQuery(c *gin.Context) {
	logger := requestLogger(c, "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	if req.Mode == "" {
		req.Mode = string(model.QueryModeHybrid)
	}
	if req.TopK == 0 {
		req.TopK = defaultQueryTopK
	}
	mode, err := model.ParseQueryMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_MODE"})
		return
	}

	answer, err := h.svc.Query(c.Request.Context(), req.Query, mode, req.TopK)
	if err != nil {
		logger.Error("Query failed", "mode", mode, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "QUERY_FAILED"})
		return
	}
	c.JSON(http.StatusOK, QueryResponse{Answer: answer, Mode: string(mode)})
}

// HandleSubgraph handles GET /v1/graphrag/graph.
//
// Query Parameters:
//
//	start: entity name to walk from (optional; empty exports the graph)
//	max_depth: traversal depth bound, 1..5, default 2
//	max_nodes: visited-node cap, 10..1000, default 100
//
// Response:
//
//	200 OK: graph.SubgraphResult (empty collections when start is absent)
func (h *Handlers) HandleSubgraph(c *gin.Context) {
	logger := requestLogger(c, "HandleSubgraph")

	var q SubgraphQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		logger.Warn("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}
	if q.MaxDepth == 0 {
		q.MaxDepth = defaultSubgraphMaxDepth
	}
	if q.MaxNodes == 0 {
		q.MaxNodes = defaultSubgraphMaxNodes
	}

	result := h.svc.Subgraph(q.Start, q.MaxDepth, q.MaxNodes)
	c.JSON(http.StatusOK, result)
}

// HandleStatistics handles GET /v1/graphrag/graph/statistics.
func (h *Handlers) HandleStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Statistics())
}

// HandleGetEntity handles GET /v1/graphrag/entities/:name.
//
// Response:
//
//	200 OK: model.Entity
//	404 Not Found: no entity with that name
func (h *Handlers) HandleGetEntity(c *gin.Context) {
	name := c.Param("name")
	entity, ok := h.svc.GetEntity(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "entity not found", Code: "ENTITY_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, entity)
}

// HandleUpdateEntity handles PUT /v1/graphrag/entities/:name.
//
// Response:
//
//	200 OK: UpdatedResponse
//	404 Not Found: no entity with that name
//	500 Internal Server Error: persistence or embedding failure
func (h *Handlers) HandleUpdateEntity(c *gin.Context) {
	logger := requestLogger(c, "HandleUpdateEntity")
	name := c.Param("name")

	var req UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	ok, err := h.svc.UpdateEntity(c.Request.Context(), name, EntityUpdate{
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		logger.Error("Entity update failed", "name", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "UPDATE_FAILED"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "entity not found", Code: "ENTITY_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, UpdatedResponse{Updated: true, ID: name})
}

// HandleDeleteEntity handles DELETE /v1/graphrag/entities/:name.
//
// Response:
//
//	200 OK: DeletedResponse
//	404 Not Found: no entity with that name
func (h *Handlers) HandleDeleteEntity(c *gin.Context) {
	logger := requestLogger(c, "HandleDeleteEntity")
	name := c.Param("name")

	ok, err := h.svc.DeleteEntity(name)
	if err != nil {
		logger.Error("Entity delete failed", "name", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "DELETE_FAILED"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "entity not found", Code: "ENTITY_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: true, ID: name})
}

// HandleGetRelationship handles GET /v1/graphrag/relationships/:source/:target.
func (h *Handlers) HandleGetRelationship(c *gin.Context) {
	source, target := c.Param("source"), c.Param("target")
	rel, ok := h.svc.GetRelationship(source, target)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "relationship not found", Code: "RELATIONSHIP_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, rel)
}

// HandleUpdateRelationship handles PUT /v1/graphrag/relationships/:source/:target.
func (h *Handlers) HandleUpdateRelationship(c *gin.Context) {
	logger := requestLogger(c, "HandleUpdateRelationship")
	source, target := c.Param("source"), c.Param("target")

	var req UpdateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	ok, err := h.svc.UpdateRelationship(c.Request.Context(), source, target, RelationshipUpdate{
		Relation:    req.Relation,
		Description: req.Description,
	})
	if err != nil {
		logger.Error("Relationship update failed", "source", source, "target", target, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "UPDATE_FAILED"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "relationship not found", Code: "RELATIONSHIP_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, UpdatedResponse{Updated: true, ID: source + "->" + target})
}

// HandleDeleteRelationship handles DELETE /v1/graphrag/relationships/:source/:target.
func (h *Handlers) HandleDeleteRelationship(c *gin.Context) {
	logger := requestLogger(c, "HandleDeleteRelationship")
	source, target := c.Param("source"), c.Param("target")

	ok, err := h.svc.DeleteRelationship(source, target)
	if err != nil {
		logger.Error("Relationship delete failed", "source", source, "target", target, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "DELETE_FAILED"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "relationship not found", Code: "RELATIONSHIP_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: true, ID: source + "->" + target})
}

// HandleDocStatus handles GET /v1/graphrag/documents/:id/status.
func (h *Handlers) HandleDocStatus(c *gin.Context) {
	logger := requestLogger(c, "HandleDocStatus")
	docID := c.Param("id")

	st, found, err := h.svc.DocStatus(docID)
	if err != nil {
		logger.Error("Status lookup failed", "doc_id", docID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STATUS_LOOKUP_FAILED"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found", Code: "DOCUMENT_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// HandleDocStatusCounts handles GET /v1/graphrag/documents/statuses.
func (h *Handlers) HandleDocStatusCounts(c *gin.Context) {
	logger := requestLogger(c, "HandleDocStatusCounts")

	counts, err := h.svc.DocStatusCounts()
	if err != nil {
		logger.Error("Status counts failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STATUS_LOOKUP_FAILED"})
		return
	}
	c.JSON(http.StatusOK, StatusCountsResponse{Counts: counts})
}

// HandleClearCache handles POST /v1/graphrag/cache/clear.
func (h *Handlers) HandleClearCache(c *gin.Context) {
	cleared := h.svc.ClearCache()
	requestLogger(c, "HandleClearCache").Info("Extraction cache cleared", "entries", cleared)
	c.JSON(http.StatusOK, CacheClearResponse{Cleared: cleared})
}

// HandleSystemInfo handles GET /v1/graphrag/system/info.
func (h *Handlers) HandleSystemInfo(c *gin.Context) {
	logger := requestLogger(c, "HandleSystemInfo")

	info, err := h.svc.SystemInfo()
	if err != nil {
		logger.Error("System info failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "SYSTEM_INFO_FAILED"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// HandleHealth handles GET /v1/graphrag/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// requestLogger builds a logger bound to the request id and handler name.
func requestLogger(c *gin.Context, handler string) *slog.Logger {
	return slog.With("request_id", RequestID(c), "handler", handler)
}
