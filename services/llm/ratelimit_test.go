package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls atomic.Int64
	reply string
}

func (s *stubClient) Generate(_ context.Context, _ string, _ GenerationParams) (string, error) {
	s.calls.Add(1)
	return s.reply, nil
}

type stubEmbedder struct {
	calls atomic.Int64
	dim   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

// TestNewRateLimitedRejectsBadConfig verifies constructor validation.
func TestNewRateLimitedRejectsBadConfig(t *testing.T) {
	_, err := NewRateLimited(nil, 10, 1)
	require.Error(t, err)

	_, err = NewRateLimited(&stubClient{}, 0, 1)
	require.Error(t, err)

	_, err = NewRateLimited(&stubClient{}, 10, 0)
	require.Error(t, err)
}

// TestRateLimitedPassesThrough verifies calls reach the inner client under
// a permissive limit.
func TestRateLimitedPassesThrough(t *testing.T) {
	inner := &stubClient{reply: "ok"}
	limited, err := NewRateLimited(inner, 1000, 10)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := limited.Generate(context.Background(), "prompt", GenerationParams{})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	}
	assert.Equal(t, int64(3), inner.calls.Load())
}

// TestRateLimitedHonorsContext verifies a blocked wait aborts when the
// context is cancelled instead of calling the inner client.
func TestRateLimitedHonorsContext(t *testing.T) {
	inner := &stubClient{reply: "ok"}
	limited, err := NewRateLimited(inner, 0.001, 1)
	require.NoError(t, err)

	_, err = limited.Generate(context.Background(), "first", GenerationParams{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, "second", GenerationParams{})
	require.Error(t, err)
	assert.Equal(t, int64(1), inner.calls.Load())
}

// TestRateLimitedEmbedder verifies pass-through and dimension reporting.
func TestRateLimitedEmbedder(t *testing.T) {
	inner := &stubEmbedder{dim: 4}
	limited, err := NewRateLimitedEmbedder(inner, 1000, 10)
	require.NoError(t, err)

	vectors, err := limited.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 4)
	assert.Equal(t, 4, limited.Dimension())
	assert.Equal(t, int64(1), inner.calls.Load())
}
