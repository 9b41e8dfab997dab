// Package embedding turns sentences into vectors through hashed lexical
// features, local ONNX models or the Gemini API, with LRU and persistent
// caching. MockEmbedder is a deterministic double for tests.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text. EmbedBatch preserves order
// and returns one vector per input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Backends accepted by New.
const (
	BackendLexical = "lexical"
	BackendONNX    = "onnx"
	BackendGemini  = "gemini"
)

// Config selects and sizes an embedding backend.
type Config struct {
	Backend     string
	ModelPath   string
	Dimensions  int
	MaxTokens   int
	CacheSize   int
	GeminiModel string
	APIKey      string
}

// New builds the configured backend wrapped in an LRU cache.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Backend {
	case BackendONNX:
		inner, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case BackendGemini:
		inner, err = NewGeminiEmbedder(ctx, cfg.APIKey, cfg.GeminiModel, cfg.Dimensions, WithGeminiLogger(logger))
	case BackendLexical, "":
		inner, err = NewLexicalEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.Backend, err)
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

// embedEach implements EmbedBatch for backends without a batch call.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
