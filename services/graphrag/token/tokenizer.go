// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package token defines the tokenizer capability used by the chunking
// pipeline and provides a tiktoken-backed implementation.
package token

// Tokenizer converts between text and model token ids.
//
// Encode and Decode must form a consistent, deterministic pair for a given
// model identifier: Decode(Encode(x)) need not reproduce x byte for byte,
// but repeated calls with the same input must always produce the same
// output.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// CountTokens returns the token count of text under t.
func CountTokens(t Tokenizer, text string) int {
	return len(t.Encode(text))
}
