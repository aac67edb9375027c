// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseExtraction recovers a structured extraction from a raw completion
// response. Attempts, in order:
//
//  1. decode the whole response as JSON
//  2. decode the contents of the first fenced code block
//  3. decode the first balanced brace-delimited substring
//
// Responses that fail all three return an error; callers treat that as an
// empty extraction for the chunk.
func ParseExtraction(raw string) (model.Extraction, error) {
	if parsed, ok := decodeExtraction(raw); ok {
		return parsed, nil
	}
	if match := fencedBlockPattern.FindStringSubmatch(raw); match != nil {
		if parsed, ok := decodeExtraction(match[1]); ok {
			return parsed, nil
		}
	}
	if candidate, ok := balancedObject(raw); ok {
		if parsed, ok := decodeExtraction(candidate); ok {
			return parsed, nil
		}
	}
	return model.Extraction{}, fmt.Errorf("no decodable JSON object in response")
}

func decodeExtraction(s string) (model.Extraction, bool) {
	var parsed model.Extraction
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return model.Extraction{}, false
	}
	return parsed, true
}

// balancedObject returns the first substring that opens with '{' and closes
// with its matching '}'. Braces inside JSON strings do not count toward the
// balance; an opening brace that never closes is skipped in favor of the
// next one.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end, ok := scanObject(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return "", false
		}
		start += 1 + next
	}
	return "", false
}

func scanObject(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
