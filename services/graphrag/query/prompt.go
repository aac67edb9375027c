// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import "strings"

const (
	contextPlaceholder = "{context}"
	queryPlaceholder   = "{query}"
)

// DefaultAnswerPrompt frames the final completion call. Retrieval fills
// {context}; the user's question fills {query}.
const DefaultAnswerPrompt = `Answer the question using only the information in the context below. If the context does not contain the answer, say so instead of guessing.

Context:
{context}

Question:
{query}

Answer:`

// RenderAnswerPrompt substitutes context and question into an answer
// prompt template.
func RenderAnswerPrompt(template, contextBlock, queryText string) string {
	out := strings.ReplaceAll(template, contextPlaceholder, contextBlock)
	return strings.ReplaceAll(out, queryPlaceholder, queryText)
}
