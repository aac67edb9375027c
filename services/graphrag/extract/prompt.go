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

import "strings"

// contentPlaceholder marks where the chunk text is substituted into a
// prompt template.
const contentPlaceholder = "{content}"

// DefaultPrompt asks the completion service for entities and relationships
// as a bare JSON object. Parsing tolerates prose and code fences around the
// object, but the prompt asks for none to keep the fast path common.
const DefaultPrompt = `You are an information extraction engine. Read the text below and extract the entities it mentions and the directed relationships between them.

Return ONLY a JSON object with this exact structure:
{
  "entities": [
    {"name": "entity name", "type": "entity type", "description": "one-sentence description"}
  ],
  "relationships": [
    {"source": "source entity name", "target": "target entity name", "relation": "relation label", "description": "one-sentence description"}
  ]
}

Rules:
- Use entity names exactly as they appear in the text.
- "source" and "target" must be names from the "entities" list.
- Direction matters: A employs B is not the same as B employs A.
- If the text contains nothing to extract, return {"entities": [], "relationships": []}.

Text:
{content}`

// RenderPrompt substitutes chunk content into a prompt template.
func RenderPrompt(template, content string) string {
	return strings.ReplaceAll(template, contentPlaceholder, content)
}
