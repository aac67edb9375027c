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
	"regexp"
	"strings"
	"unicode"

	"github.com/AleutianAI/Adak/services/graphrag/model"
)

// whitespaceRun matches runs of anything unicode.IsSpace accepts. Go's \s
// alone is ASCII-only, which would leave NBSP and friends intact.
var whitespaceRun = regexp.MustCompile(`[\s\p{Z}\x{85}]+`)

// CleanText collapses whitespace runs into single spaces, drops characters
// outside the allowed set (letters, digits, underscore, whitespace and the
// punctuation .,;:!?()-), and trims leading/trailing whitespace. Collapse
// runs before the character filter, so a dropped character can leave two
// adjacent spaces behind.
func CleanText(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func allowedRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '-':
		return true
	}
	return false
}

// NormalizeExtraction applies CleanText to every text field of every
// extracted record. Record counts and order are preserved.
func NormalizeExtraction(x model.Extraction) model.Extraction {
	out := model.Extraction{
		Entities:      make([]model.Entity, len(x.Entities)),
		Relationships: make([]model.Relationship, len(x.Relationships)),
	}
	for i, entity := range x.Entities {
		entity.Name = CleanText(entity.Name)
		entity.Type = CleanText(entity.Type)
		entity.Description = CleanText(entity.Description)
		out.Entities[i] = entity
	}
	for i, rel := range x.Relationships {
		rel.Source = CleanText(rel.Source)
		rel.Target = CleanText(rel.Target)
		rel.Relation = CleanText(rel.Relation)
		rel.Description = CleanText(rel.Description)
		out.Relationships[i] = rel
	}
	return out
}
