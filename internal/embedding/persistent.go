package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/pkg/utils"
)

// VectorStore persists embeddings across runs.
type VectorStore interface {
	GetEmbedding(ctx context.Context, key, model string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, key, model string, vector []float32) error
}

// PersistentEmbedder looks embeddings up in a VectorStore by content hash
// before asking the wrapped embedder. Store errors are logged and ignored.
type PersistentEmbedder struct {
	inner  Embedder
	store  VectorStore
	model  string
	logger *zap.Logger
}

// NewPersistentEmbedder wraps inner. model namespaces stored vectors so
// switching backends never mixes vector spaces.
func NewPersistentEmbedder(inner Embedder, store VectorStore, model string, logger *zap.Logger) *PersistentEmbedder {
	return &PersistentEmbedder{inner: inner, store: store, model: model, logger: utils.OrNop(logger)}
}

// ContentKey returns the storage key for text.
func ContentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the embedding for text.
func (p *PersistentEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch serves stored vectors and embeds and stores the rest.
func (p *PersistentEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		v, ok, err := p.store.GetEmbedding(ctx, ContentKey(t), p.model)
		if err != nil {
			p.logger.Warn("embedding lookup failed", zap.Error(err))
		}
		if ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := p.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range vecs {
		out[missingIdx[j]] = v
		if err := p.store.PutEmbedding(ctx, ContentKey(missing[j]), p.model, v); err != nil {
			p.logger.Warn("embedding store failed", zap.Error(err))
		}
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (p *PersistentEmbedder) Dimensions() int {
	return p.inner.Dimensions()
}

// Close closes the wrapped embedder. The store is owned by the caller.
func (p *PersistentEmbedder) Close() error {
	return p.inner.Close()
}
