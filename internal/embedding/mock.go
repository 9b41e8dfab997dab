package embedding

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/hyperjump/kugiri/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. Texts registered with
// WithVector get that vector; any other text gets a unit vector derived from
// its hash so the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
	fixed      map[string][]float32
	calls      atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions, fixed: make(map[string][]float32)}
}

// WithVector pins the embedding of text.
func (e *MockEmbedder) WithVector(text string, v []float32) *MockEmbedder {
	e.fixed[text] = v
	return e
}

// Embed returns the pinned vector or a hash-derived one.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := e.fixed[text]; ok {
		return v, nil
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text and counts one backend call.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	return embedEach(ctx, e, texts)
}

// Calls returns how many batch calls were made.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
