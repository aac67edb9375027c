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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Adak/services/graphrag/graph"
	"github.com/AleutianAI/Adak/services/graphrag/model"
)

func newTestRouter(t *testing.T, scripted *scriptedLLM) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t, scripted)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	RegisterRoutes(router.Group("/v1"), NewHandlers(svc))
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func ingestChainHTTP(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/graphrag/documents/text",
		InsertTextRequest{Text: "A works with B. B reports to C."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[InsertTextResponse](t, w).DocID
}

// TestHandleInsertText ingests a document over HTTP and checks the
// manifest in the response.
func TestHandleInsertText(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})

	w := doJSON(t, router, http.MethodPost, "/v1/graphrag/documents/text",
		InsertTextRequest{Text: "A works with B. B reports to C."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[InsertTextResponse](t, w)
	assert.Equal(t, model.DocStatusProcessed, resp.Status)
	assert.Equal(t, 1, resp.ChunksCount)
	assert.Equal(t, 0, resp.FailedChunks)
	assert.NotEmpty(t, resp.DocID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	t.Run("missing text is rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/graphrag/documents/text", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decode[ErrorResponse](t, w).Code)
	})
}

// TestHandleQuery answers through HTTP, defaulting mode and top_k.
func TestHandleQuery(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "extract the entities", response: chainExtraction},
		{match: "Answer the question", response: "A works with B."},
	}})
	ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graphrag/query",
		QueryRequest{Query: "who works with B", Mode: "local", TopK: 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[QueryResponse](t, w)
	assert.Equal(t, "A works with B.", resp.Answer)
	assert.Equal(t, "local", resp.Mode)

	t.Run("mode defaults to hybrid", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/graphrag/query",
			QueryRequest{Query: "who works with B"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "hybrid", decode[QueryResponse](t, w).Mode)
	})

	t.Run("unsupported mode is rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/graphrag/query",
			map[string]string{"query": "x", "mode": "mix"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("top_k above range is rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/graphrag/query",
			QueryRequest{Query: "x", Mode: "naive", TopK: 500})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestHandleSubgraph bounds and defaults the traversal parameters.
func TestHandleSubgraph(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graphrag/graph?start=A&max_depth=2&max_nodes=100", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decode[graph.SubgraphResult](t, w)
	assert.Len(t, sub.Nodes, 3)
	assert.Len(t, sub.Edges, 2)

	t.Run("omitted start exports the graph", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/graphrag/graph", nil)
		require.Equal(t, http.StatusOK, w.Code)
		sub := decode[graph.SubgraphResult](t, w)
		assert.Len(t, sub.Nodes, 3)
	})

	t.Run("absent start yields empty collections", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/graphrag/graph?start=Nobody", nil)
		require.Equal(t, http.StatusOK, w.Code)
		sub := decode[graph.SubgraphResult](t, w)
		assert.Empty(t, sub.Nodes)
		assert.Empty(t, sub.Edges)
	})

	t.Run("out-of-range depth is rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/graphrag/graph?max_depth=9", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestHandleStatistics returns counts and the name sample.
func TestHandleStatistics(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graphrag/graph/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[graph.Statistics](t, w)
	assert.Equal(t, 3, stats.TotalEntities)
	assert.Equal(t, 2, stats.TotalRelationships)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, stats.EntityNames)
}

// TestHandleEntityCRUD exercises the entity endpoints including the 404
// contract for absent names.
func TestHandleEntityCRUD(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graphrag/entities/A", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "person", decode[model.Entity](t, w).Type)

	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/entities/Nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	desc := "updated over http"
	w = doJSON(t, router, http.MethodPut, "/v1/graphrag/entities/A",
		UpdateEntityRequest{Description: &desc})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[UpdatedResponse](t, w).Updated)

	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/entities/A", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, desc, decode[model.Entity](t, w).Description)

	w = doJSON(t, router, http.MethodPut, "/v1/graphrag/entities/Nobody",
		UpdateEntityRequest{Description: &desc})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/v1/graphrag/entities/A", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[DeletedResponse](t, w).Deleted)

	w = doJSON(t, router, http.MethodDelete, "/v1/graphrag/entities/A", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleRelationshipCRUD exercises the relationship endpoints.
func TestHandleRelationshipCRUD(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graphrag/relationships/A/B", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "works with", decode[model.Relationship](t, w).Relation)

	// Direction matters.
	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/relationships/B/A", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	relName := "collaborates with"
	w = doJSON(t, router, http.MethodPut, "/v1/graphrag/relationships/A/B",
		UpdateRelationshipRequest{Relation: &relName})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodDelete, "/v1/graphrag/relationships/A/B", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A->B", decode[DeletedResponse](t, w).ID)

	w = doJSON(t, router, http.MethodDelete, "/v1/graphrag/relationships/A/B", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleDocStatus returns the status record and counts by state.
func TestHandleDocStatus(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	docID := ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graphrag/documents/"+docID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[model.DocProcessingStatus](t, w)
	assert.Equal(t, model.DocStatusProcessed, st.Status)
	assert.Equal(t, 1, st.ChunksCount)

	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/documents/deadbeef/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/documents/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[StatusCountsResponse](t, w)
	assert.Equal(t, 1, counts.Counts[model.DocStatusProcessed])
}

// TestHandleCacheAndSystem covers cache clearing, system info, and the
// health check.
func TestHandleCacheAndSystem(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{scripts: []script{
		{match: "works with", response: chainExtraction},
	}})
	ingestChainHTTP(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graphrag/cache/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[CacheClearResponse](t, w).Cleared)

	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/system/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[SystemInfo](t, w)
	assert.Equal(t, ServiceVersion, info.Version)
	assert.Equal(t, 3, info.Entities)

	w = doJSON(t, router, http.MethodGet, "/v1/graphrag/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, w).Status)
}

// TestRequestIDMiddleware honors an incoming X-Request-ID header.
func TestRequestIDMiddleware(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedLLM{})

	req := httptest.NewRequest(http.MethodGet, "/v1/graphrag/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}
