package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hyperjump/kugiri/pkg/utils"
)

const (
	defaultGeminiEmbeddingModel = "gemini-embedding-001"
	geminiTaskType              = "SEMANTIC_SIMILARITY"
	geminiMaxBatch              = 100
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder calls the Gemini embedding endpoint in batches.
type GeminiEmbedder struct {
	models     contentEmbedder
	model      string
	dimensions int
	logger     *zap.Logger
}

// GeminiOption configures a GeminiEmbedder.
type GeminiOption func(*GeminiEmbedder)

// WithGeminiLogger sets the logger.
func WithGeminiLogger(l *zap.Logger) GeminiOption {
	return func(e *GeminiEmbedder) { e.logger = l }
}

// NewGeminiEmbedder creates an embedder for the Gemini API backend. Vectors
// are truncated server-side to dimensions when dimensions > 0.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int, opts ...GeminiOption) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiEmbedder(client.Models, model, dimensions, opts...), nil
}

func newGeminiEmbedder(models contentEmbedder, model string, dimensions int, opts ...GeminiOption) *GeminiEmbedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiEmbeddingModel
	}
	e := &GeminiEmbedder{models: models, model: model, dimensions: dimensions}
	for _, o := range opts {
		o(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Embed returns the embedding for one text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch sends texts in requests of at most 100 contents.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := start + geminiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		cfg := &genai.EmbedContentConfig{TaskType: geminiTaskType}
		if e.dimensions > 0 {
			cfg.OutputDimensionality = genai.Ptr(int32(e.dimensions))
		}
		resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("embed content: expected %d embeddings", len(contents))
		}
		for _, emb := range resp.Embeddings {
			v := append([]float32(nil), emb.Values...)
			utils.NormalizeL2(v)
			out = append(out, v)
		}
		e.logger.Debug("gemini embeddings", zap.Int("count", len(contents)), zap.String("model", e.model))
	}
	return out, nil
}

// Dimensions returns the configured output dimension (0 means model default).
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client has no resources to release.
func (e *GeminiEmbedder) Close() error {
	return nil
}
