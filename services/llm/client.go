package llm

import "context"

// GenerationParams carries optional sampling settings. Nil pointers
// leave the backend's defaults untouched.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient is the completion interface the extraction and query
// pipelines depend on. Adapters in this package implement it for
// OpenAI and Ollama backends.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
