// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid piece of engine
// configuration. It is fatal at the first call site that needs the
// configured capability; callers must not retry.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ExtractionCallError reports a failed completion-service call during
// chunk extraction. The affected chunk is skipped; processing of the
// remaining chunks of the document continues.
type ExtractionCallError struct {
	ChunkID string
	Err     error
}

func (e *ExtractionCallError) Error() string {
	return fmt.Sprintf("extraction call failed for chunk %s: %v", e.ChunkID, e.Err)
}

func (e *ExtractionCallError) Unwrap() error { return e.Err }

// IsExtractionCallError reports whether err wraps an ExtractionCallError.
func IsExtractionCallError(err error) bool {
	var ce *ExtractionCallError
	return errors.As(err, &ce)
}

// ExtractionParseError records malformed completion output. It is
// recovered inside the extractor, which yields an empty result for the
// chunk; the value exists so per-chunk manifests can carry the cause.
type ExtractionParseError struct {
	ChunkID string
	Reason  string
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("extraction parse failed for chunk %s: %s", e.ChunkID, e.Reason)
}

// StorageError reports a failed durable write. The mutation that caused it
// is not acknowledged; the in-memory state of the owning store may be
// ahead of the durable copy until a retried mutation succeeds.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
