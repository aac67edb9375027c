package llm

import "context"

// Embedder defines the standard interface for any embedding backend.
// Implementations must return one vector per input text, in input order,
// and every vector must have exactly Dimension() components.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
