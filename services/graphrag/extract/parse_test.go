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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

const wellFormed = `{"entities":[{"name":"Ada Lovelace","type":"person","description":"early programmer"}],"relationships":[{"source":"Ada Lovelace","target":"Analytical Engine","relation":"wrote programs for","description":"first published algorithm"}]}`

// TestParseExtractionDirect verifies a bare JSON response decodes on the
// first attempt.
func TestParseExtractionDirect(t *testing.T) {
	parsed, err := ParseExtraction(wellFormed)
	require.NoError(t, err)
	require.Len(t, parsed.Entities, 1)
	require.Len(t, parsed.Relationships, 1)
	assert.Equal(t, "Ada Lovelace", parsed.Entities[0].Name)
	assert.Equal(t, "Analytical Engine", parsed.Relationships[0].Target)
}

// TestParseExtractionFencedBlock verifies a fenced code block is unwrapped,
// with and without a language tag.
func TestParseExtractionFencedBlock(t *testing.T) {
	t.Run("json tag", func(t *testing.T) {
		raw := "Here is the result:\n```json\n" + wellFormed + "\n```\nLet me know if you need more."
		parsed, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Len(t, parsed.Entities, 1)
	})
	t.Run("no tag", func(t *testing.T) {
		raw := "```\n" + wellFormed + "\n```"
		parsed, err := ParseExtraction(raw)
		require.NoError(t, err)
		assert.Len(t, parsed.Entities, 1)
	})
}

// TestParseExtractionBalancedSubstring verifies an object embedded in prose
// is recovered, including braces inside string values.
func TestParseExtractionBalancedSubstring(t *testing.T) {
	raw := `Sure thing. The extraction is {"entities":[{"name":"Go","type":"language","description":"uses {braces} everywhere"}],"relationships":[]} as requested.`
	parsed, err := ParseExtraction(raw)
	require.NoError(t, err)
	require.Len(t, parsed.Entities, 1)
	assert.Equal(t, "uses {braces} everywhere", parsed.Entities[0].Description)
}

// TestParseExtractionSkipsUnbalancedPrefix verifies an opening brace that
// never closes does not mask a later valid object.
func TestParseExtractionSkipsUnbalancedPrefix(t *testing.T) {
	raw := `note { this one never closes ` + "\n" + `{"entities":[],"relationships":[]}`
	parsed, err := ParseExtraction(raw)
	require.NoError(t, err)
	assert.Empty(t, parsed.Entities)
	assert.Empty(t, parsed.Relationships)
}

// TestParseExtractionFailure verifies responses with no decodable object
// return an error.
func TestParseExtractionFailure(t *testing.T) {
	for _, raw := range []string{
		"",
		"no structured data here",
		"{not valid json}",
		"[1, 2, 3]",
	} {
		_, err := ParseExtraction(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

// TestCleanText verifies whitespace collapse, character filtering and the
// collapse-before-filter ordering.
func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a\n\nb\t c", "a b c"},
		{"  trimmed  ", "trimmed"},
		{"Acme@Corp!", "AcmeCorp!"},
		{"a @ b", "a  b"},
		{"café 北京 42", "café 北京 42"},
		{"keep .,;:!?()- these", "keep .,;:!?()- these"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanText(tc.in), "in=%q", tc.in)
	}
}

// TestNormalizeExtraction verifies every field of every record is cleaned
// while counts and order are preserved.
func TestNormalizeExtraction(t *testing.T) {
	dirty := model.Extraction{
		Entities: []model.Entity{
			{Name: "  Acme\tCorp ", Type: "org*", Description: "makes\n\nthings"},
			{Name: "Bob", Type: "person", Description: "works @ Acme"},
		},
		Relationships: []model.Relationship{
			{Source: " Bob ", Target: "Acme Corp", Relation: "works  for", Description: "since #2020"},
		},
	}

	clean := NormalizeExtraction(dirty)
	require.Len(t, clean.Entities, 2)
	require.Len(t, clean.Relationships, 1)
	assert.Equal(t, "Acme Corp", clean.Entities[0].Name)
	assert.Equal(t, "org", clean.Entities[0].Type)
	assert.Equal(t, "makes things", clean.Entities[0].Description)
	assert.Equal(t, "works  Acme", clean.Entities[1].Description)
	assert.Equal(t, "Bob", clean.Relationships[0].Source)
	assert.Equal(t, "Acme Corp", clean.Relationships[0].Target)
	assert.Equal(t, "works for", clean.Relationships[0].Relation)
	assert.Equal(t, "since 2020", clean.Relationships[0].Description)
}
