// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chunk splits raw text into token-bounded, optionally overlapping
// segments for downstream extraction.
package chunk

import (
	"strings"

	"github.com/AleutianAI/Adak/services/graphrag/model"
	"github.com/AleutianAI/Adak/services/graphrag/token"
)

const (
	// DefaultMaxTokens is the default window size in tokens.
	DefaultMaxTokens = 1200

	// DefaultOverlapTokens is the default number of tokens shared by
	// consecutive windows.
	DefaultOverlapTokens = 100
)

// Options controls how content is segmented.
type Options struct {
	// MaxTokens is the window size. Must be positive.
	MaxTokens int

	// OverlapTokens is the number of tokens consecutive windows share.
	// Must satisfy 0 <= OverlapTokens < MaxTokens.
	OverlapTokens int

	// SplitChar, when non-empty, splits content on the literal delimiter
	// before any token windowing.
	SplitChar string

	// SplitCharOnly keeps every delimiter-separated piece as a single
	// chunk regardless of its token count. Only meaningful with SplitChar.
	SplitCharOnly bool
}

// DefaultOptions returns the standard window configuration.
func DefaultOptions() Options {
	return Options{MaxTokens: DefaultMaxTokens, OverlapTokens: DefaultOverlapTokens}
}

// Validate reports whether the window configuration is usable.
func (o Options) Validate() error {
	if o.MaxTokens <= 0 {
		return &model.ConfigurationError{Field: "max_tokens", Reason: "must be positive"}
	}
	if o.OverlapTokens < 0 {
		return &model.ConfigurationError{Field: "overlap_tokens", Reason: "must not be negative"}
	}
	if o.OverlapTokens >= o.MaxTokens {
		return &model.ConfigurationError{Field: "overlap_tokens", Reason: "must be smaller than max_tokens"}
	}
	return nil
}

// Split segments content into ordered chunks.
//
// In the default mode the token sequence is walked in a sliding window of
// Options.MaxTokens advancing by MaxTokens-OverlapTokens each step; the
// final window is truncated to the remaining tokens. With SplitChar set,
// content is first split on the delimiter; unless SplitCharOnly is set,
// any piece exceeding MaxTokens is re-split with the sliding window, and
// all pieces are renumbered into one contiguous sequence.
//
// Output is deterministic for identical (tokenizer, content, options), so
// chunk identifiers derived from the order index are reproducible. Chunk
// content is whitespace-trimmed; order indices are contiguous from 0.
func Split(tok token.Tokenizer, content string, opts Options) ([]model.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	step := opts.MaxTokens - opts.OverlapTokens

	if opts.SplitChar != "" {
		return splitByCharacter(tok, content, opts, step), nil
	}

	tokens := tok.Encode(content)
	var chunks []model.Chunk
	for start, index := 0, 0; start < len(tokens); start, index = start+step, index+1 {
		end := min(start+opts.MaxTokens, len(tokens))
		chunks = append(chunks, model.Chunk{
			Content:         strings.TrimSpace(tok.Decode(tokens[start:end])),
			Tokens:          end - start,
			ChunkOrderIndex: index,
		})
	}
	return chunks, nil
}

type piece struct {
	tokens  int
	content string
}

func splitByCharacter(tok token.Tokenizer, content string, opts Options, step int) []model.Chunk {
	raw := strings.Split(content, opts.SplitChar)
	var pieces []piece

	if opts.SplitCharOnly {
		for _, p := range raw {
			pieces = append(pieces, piece{tokens: len(tok.Encode(p)), content: p})
		}
	} else {
		for _, p := range raw {
			ids := tok.Encode(p)
			if len(ids) <= opts.MaxTokens {
				pieces = append(pieces, piece{tokens: len(ids), content: p})
				continue
			}
			for start := 0; start < len(ids); start += step {
				end := min(start+opts.MaxTokens, len(ids))
				pieces = append(pieces, piece{tokens: end - start, content: tok.Decode(ids[start:end])})
			}
		}
	}

	chunks := make([]model.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, model.Chunk{
			Content:         strings.TrimSpace(p.content),
			Tokens:          p.tokens,
			ChunkOrderIndex: i,
		})
	}
	return chunks
}
