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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all knowledge-graph routes with the router.
//
// Description:
//
//	Registers all /v1/graphrag/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied; RequestIDMiddleware is recommended.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/graphrag/documents/text - Ingest raw text
//	GET    /v1/graphrag/documents/statuses - Document counts by state
//	GET    /v1/graphrag/documents/:id/status - One document's status
//	POST   /v1/graphrag/query - Answer a question (naive/local/global/hybrid)
//	GET    /v1/graphrag/graph - Bounded subgraph or full export
//	GET    /v1/graphrag/graph/statistics - Entity/relationship counts
//	GET    /v1/graphrag/entities/:name - Get an entity
//	PUT    /v1/graphrag/entities/:name - Update an entity
//	DELETE /v1/graphrag/entities/:name - Delete an entity and its edges
//	GET    /v1/graphrag/relationships/:source/:target - Get an edge
//	PUT    /v1/graphrag/relationships/:source/:target - Update an edge
//	DELETE /v1/graphrag/relationships/:source/:target - Delete an edge
//	POST   /v1/graphrag/cache/clear - Drop all extraction-cache entries
//	GET    /v1/graphrag/system/info - Operational snapshot
//	GET    /v1/graphrag/health - Health check
//
// Example:
//
//	svc, err := graphrag.New(cfg)
//	handlers := graphrag.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	graphrag.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	gr := rg.Group("/graphrag")
	{
		// Ingestion
		gr.POST("/documents/text", handlers.HandleInsertText)
		gr.GET("/documents/statuses", handlers.HandleDocStatusCounts)
		gr.GET("/documents/:id/status", handlers.HandleDocStatus)

		// Retrieval
		gr.POST("/query", handlers.HandleQuery)
		gr.GET("/graph", handlers.HandleSubgraph)
		gr.GET("/graph/statistics", handlers.HandleStatistics)

		// Entity and relationship CRUD
		gr.GET("/entities/:name", handlers.HandleGetEntity)
		gr.PUT("/entities/:name", handlers.HandleUpdateEntity)
		gr.DELETE("/entities/:name", handlers.HandleDeleteEntity)
		gr.GET("/relationships/:source/:target", handlers.HandleGetRelationship)
		gr.PUT("/relationships/:source/:target", handlers.HandleUpdateRelationship)
		gr.DELETE("/relationships/:source/:target", handlers.HandleDeleteRelationship)

		// Administration
		gr.POST("/cache/clear", handlers.HandleClearCache)
		gr.GET("/system/info", handlers.HandleSystemInfo)
		gr.GET("/health", handlers.HandleHealth)
	}
}
