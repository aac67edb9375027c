// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used when a model name has no registered encoding.
const fallbackEncoding = "cl100k_base"

// TiktokenTokenizer adapts a tiktoken byte-pair encoding to the Tokenizer
// interface.
type TiktokenTokenizer struct {
	enc   *tiktoken.Tiktoken
	model string
}

var _ Tokenizer = (*TiktokenTokenizer)(nil)

// NewTiktoken builds a tokenizer for the given model name. Unknown models
// fall back to the cl100k_base encoding so that callers never need to care
// whether a model is registered with the tiktoken tables.
func NewTiktoken(model string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load fallback encoding %s: %w", fallbackEncoding, err)
		}
	}
	return &TiktokenTokenizer{enc: enc, model: model}, nil
}

// Model returns the model name the tokenizer was built for.
func (t *TiktokenTokenizer) Model() string { return t.model }

// Encode converts text into token ids.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts token ids back into text.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
