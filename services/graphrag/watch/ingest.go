// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/Adak/services/graphrag/ingest"
	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// Ingestor is the slice of the engine the watch handler needs.
type Ingestor interface {
	IngestFile(ctx context.Context, path string) (ingest.Result, error)
}

// IngestHandler returns a Handler that feeds created and written files to
// the ingestor. Removes and renames are ignored: the stores keep the
// already-indexed content. Files are ingested sequentially in batch
// order; per-file outcomes are logged, and a failed file does not stop
// the rest of the batch.
func IngestHandler(ctx context.Context, ingestor Ingestor, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(events []Event) {
		for _, e := range events {
			if e.Op != OpCreate && e.Op != OpWrite {
				continue
			}
			result, err := ingestor.IngestFile(ctx, e.Path)
			if err != nil {
				logger.Error("watched file ingestion failed", "path", e.Path, "error", err)
				continue
			}
			if result.Status == model.DocStatusFailed {
				logger.Warn("watched file processed with failure status",
					"path", e.Path, "doc_id", result.DocID)
				continue
			}
			logger.Info("watched file ingested",
				"path", e.Path,
				"doc_id", result.DocID,
				"chunks", len(result.Manifest.Chunks),
				"skipped", result.Skipped)
		}
	}
}
