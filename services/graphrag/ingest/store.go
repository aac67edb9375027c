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
	"sort"

	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/query"
	"github.com/AleutianAI/Adak/services/graphrag/storage"
)

const (
	chunkPrefix  = "chunk"
	statusPrefix = "doc"
)

// ChunkStore persists the chunk-id to chunk map. Chunk ids double as
// storage keys, so the id field is rehydrated on read.
type ChunkStore struct {
	disk *storage.Store
}

var _ query.ChunkReader = (*ChunkStore)(nil)

// NewChunkStore wraps the durable store with chunk-map access.
func NewChunkStore(disk *storage.Store) (*ChunkStore, error) {
	if disk == nil {
		return nil, &model.ConfigurationError{Field: "storage", Reason: "must not be nil"}
	}
	return &ChunkStore{disk: disk}, nil
}

// Put stores one chunk under its id.
func (s *ChunkStore) Put(c model.StoredChunk) error {
	if err := s.disk.PutJSON(chunkPrefix, c.ID, c); err != nil {
		return &model.StorageError{Op: "store chunk " + c.ID, Err: err}
	}
	return nil
}

// Get returns the chunk with the given id, reporting whether it exists.
func (s *ChunkStore) Get(chunkID string) (model.StoredChunk, bool, error) {
	var c model.StoredChunk
	found, err := s.disk.GetJSON(chunkPrefix, chunkID, &c)
	if err != nil {
		return model.StoredChunk{}, false, &model.StorageError{Op: "load chunk " + chunkID, Err: err}
	}
	if !found {
		return model.StoredChunk{}, false, nil
	}
	c.ID = chunkID
	return c, true, nil
}

// Delete removes the chunk with the given id if present.
func (s *ChunkStore) Delete(chunkID string) error {
	if err := s.disk.Delete(chunkPrefix, chunkID); err != nil {
		return &model.StorageError{Op: "delete chunk " + chunkID, Err: err}
	}
	return nil
}

// AllChunks returns every stored chunk ordered by document id and then by
// chunk order index, so retrieval scoring sees a stable sequence across
// calls. Satisfies the chunk reader contract of the query orchestrator.
func (s *ChunkStore) AllChunks() ([]model.StoredChunk, error) {
	byID, err := storage.AllJSON[model.StoredChunk](s.disk, chunkPrefix)
	if err != nil {
		return nil, &model.StorageError{Op: "load chunks", Err: err}
	}
	chunks := make([]model.StoredChunk, 0, len(byID))
	for id, c := range byID {
		c.ID = id
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].FullDocID != chunks[j].FullDocID {
			return chunks[i].FullDocID < chunks[j].FullDocID
		}
		return chunks[i].ChunkOrderIndex < chunks[j].ChunkOrderIndex
	})
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count() (int, error) {
	n := 0
	err := s.disk.ForEach(chunkPrefix, func(string, []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, &model.StorageError{Op: "count chunks", Err: err}
	}
	return n, nil
}

// StatusStore persists the document-id to processing-status map.
type StatusStore struct {
	disk *storage.Store
}

// NewStatusStore wraps the durable store with status-map access.
func NewStatusStore(disk *storage.Store) (*StatusStore, error) {
	if disk == nil {
		return nil, &model.ConfigurationError{Field: "storage", Reason: "must not be nil"}
	}
	return &StatusStore{disk: disk}, nil
}

// Put stores the processing record for a document.
func (s *StatusStore) Put(docID string, st model.DocProcessingStatus) error {
	if err := s.disk.PutJSON(statusPrefix, docID, st); err != nil {
		return &model.StorageError{Op: "store status for " + docID, Err: err}
	}
	return nil
}

// Get returns the processing record for a document, reporting whether one
// exists.
func (s *StatusStore) Get(docID string) (model.DocProcessingStatus, bool, error) {
	var st model.DocProcessingStatus
	found, err := s.disk.GetJSON(statusPrefix, docID, &st)
	if err != nil {
		return model.DocProcessingStatus{}, false, &model.StorageError{Op: "load status for " + docID, Err: err}
	}
	return st, found, nil
}

// Delete removes the processing record for a document if present.
func (s *StatusStore) Delete(docID string) error {
	if err := s.disk.Delete(statusPrefix, docID); err != nil {
		return &model.StorageError{Op: "delete status for " + docID, Err: err}
	}
	return nil
}

// All returns every processing record keyed by document id.
func (s *StatusStore) All() (map[string]model.DocProcessingStatus, error) {
	all, err := storage.AllJSON[model.DocProcessingStatus](s.disk, statusPrefix)
	if err != nil {
		return nil, &model.StorageError{Op: "load statuses", Err: err}
	}
	return all, nil
}

// CountByStatus returns the number of documents in each processing state.
// States with no documents are present with a zero count.
func (s *StatusStore) CountByStatus() (map[model.DocStatus]int, error) {
	counts := map[model.DocStatus]int{
		model.DocStatusPending:    0,
		model.DocStatusProcessing: 0,
		model.DocStatusProcessed:  0,
		model.DocStatusFailed:     0,
	}
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	for _, st := range all {
		counts[st.Status]++
	}
	return counts, nil
}
