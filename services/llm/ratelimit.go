package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

var _ LLMClient = (*RateLimited)(nil)
var _ Embedder = (*RateLimitedEmbedder)(nil)

// RateLimited wraps an LLM backend with a token bucket so that bulk
// indexing cannot exhaust a provider's request quota. Each Generate call
// waits for one token before hitting the backend.
type RateLimited struct {
	inner   LLMClient
	limiter *rate.Limiter
}

func NewRateLimited(inner LLMClient, requestsPerSecond float64, burst int) (*RateLimited, error) {
	if inner == nil {
		return nil, fmt.Errorf("rate limited client requires an inner client")
	}
	if requestsPerSecond <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate limit requires positive rate and burst, got %v/%d", requestsPerSecond, burst)
	}
	slog.Info("Rate limiting LLM calls", "requests_per_second", requestsPerSecond, "burst", burst)
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}, nil
}

// Generate implements the LLMClient interface
func (r *RateLimited) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter interrupted: %w", err)
	}
	return r.inner.Generate(ctx, prompt, params)
}

// RateLimitedEmbedder applies the same token bucket treatment to an
// embedding backend. One token is consumed per Embed call regardless of
// how many texts the call carries.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

func NewRateLimitedEmbedder(inner Embedder, requestsPerSecond float64, burst int) (*RateLimitedEmbedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("rate limited embedder requires an inner embedder")
	}
	if requestsPerSecond <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate limit requires positive rate and burst, got %v/%d", requestsPerSecond, burst)
	}
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}, nil
}

// Embed implements the Embedder interface
func (r *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}
	return r.inner.Embed(ctx, texts)
}

// Dimension implements the Embedder interface
func (r *RateLimitedEmbedder) Dimension() int {
	return r.inner.Dimension()
}
