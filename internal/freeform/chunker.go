// Package freeform chunks unstructured prose by clustering sentence
// embeddings on a similarity graph.
package freeform

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/graph"
	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/nlp"
	"github.com/hyperjump/kugiri/internal/vector"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// Result is the output of one chunking call together with the parameters
// derived for it.
type Result struct {
	Sentences         []string       `json:"sentences"`
	Chunks            []models.Chunk `json:"chunks"`
	Threshold         float64        `json:"threshold"`
	Resolution        float64        `json:"resolution"`
	AverageSimilarity float64        `json:"average_similarity"`
	TotalTokens       int            `json:"total_tokens"`
}

// Texts returns the chunk texts in order.
func (r *Result) Texts() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Text
	}
	return out
}

// Chunker runs sentence split, embedding, graph clustering and token-capped
// assembly. It is safe for concurrent use when its providers are.
type Chunker struct {
	segmenter nlp.SentenceSegmenter
	embedder  embedding.Embedder
	counter   nlp.TokenCounter
	clusterer graph.Clusterer
	params    Params
	logger    *zap.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chunker) { c.logger = l }
}

// WithParams replaces DefaultParams. Zero fields keep their defaults.
func WithParams(p Params) Option {
	return func(c *Chunker) { c.params = p.WithDefaults() }
}

// WithClusterer replaces the default CPM clusterer.
func WithClusterer(cl graph.Clusterer) Option {
	return func(c *Chunker) {
		if cl != nil {
			c.clusterer = cl
		}
	}
}

// NewChunker returns a Chunker. A nil counter falls back to the bleve word
// counter.
func NewChunker(seg nlp.SentenceSegmenter, emb embedding.Embedder, counter nlp.TokenCounter, opts ...Option) *Chunker {
	if counter == nil {
		counter = nlp.NewBleveTokenCounter(0)
	}
	c := &Chunker{
		segmenter: seg,
		embedder:  emb,
		counter:   counter,
		clusterer: graph.NewCPMClusterer(),
		params:    DefaultParams(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// Params returns the effective parameters.
func (c *Chunker) Params() Params { return c.params }

// Chunk splits text into sentences and chunks them. A segmenter failure
// treats the whole text as one sentence. Only context cancellation is
// returned as an error.
func (c *Chunker) Chunk(ctx context.Context, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sentences []string
	if c.segmenter != nil {
		s, err := c.segmenter.Split(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("sentence split failed, using whole text", zap.Error(err))
		} else {
			sentences = s
		}
	}
	if sentences == nil {
		if t := strings.TrimSpace(text); t != "" {
			sentences = []string{t}
		}
	}
	return c.ChunkSentences(ctx, sentences)
}

// ChunkSentences chunks pre-split sentences. Every sentence index appears in
// exactly one chunk and chunks are ordered by their first sentence. An
// embedding failure leaves every sentence as its own chunk.
func (c *Chunker) ChunkSentences(ctx context.Context, sentences []string) (*Result, error) {
	res := &Result{Sentences: sentences, Threshold: c.params.LowerBound}
	n := len(sentences)
	if n == 0 {
		return res, nil
	}
	for _, s := range sentences {
		res.TotalTokens += c.counter.Count(s)
	}

	var clusters [][]int
	if n > 1 && c.embedder != nil {
		vectors, err := c.embedder.EmbedBatch(ctx, sentences)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			c.logger.Warn("sentence embedding failed, emitting singletons", zap.Int("sentences", n), zap.Error(err))
		case len(vectors) != n:
			c.logger.Warn("embedding count mismatch, emitting singletons",
				zap.Int("sentences", n), zap.Int("vectors", len(vectors)))
		default:
			sim := vector.SimilarityMatrix(vectors)
			res.Threshold = DynamicThreshold(sim, c.params)
			res.AverageSimilarity = vector.MeanOffDiagonal(sim)
			res.Resolution = DynamicResolution(n, res.TotalTokens, res.AverageSimilarity, c.params)
			g := graph.Build(sim, res.Threshold)
			clusters = c.clusterer.Cluster(g, res.Resolution)
			c.logger.Debug("clustered sentences",
				zap.Int("sentences", n),
				zap.Int("edges", len(g.Edges())),
				zap.Int("clusters", len(clusters)),
				zap.Float64("threshold", res.Threshold),
				zap.Float64("resolution", res.Resolution))
		}
	}
	if res.Resolution == 0 {
		res.Resolution = DynamicResolution(n, res.TotalTokens, 0, c.params)
	}

	covered := make([]bool, n)
	for id, members := range clusters {
		for _, i := range members {
			covered[i] = true
		}
		res.Chunks = append(res.Chunks, c.assemble(sentences, members, id)...)
	}
	for i := range sentences {
		if !covered[i] {
			res.Chunks = append(res.Chunks, c.chunk(sentences[i], []int{i}, -1))
		}
	}
	sort.SliceStable(res.Chunks, func(a, b int) bool {
		return res.Chunks[a].Sentences[0] < res.Chunks[b].Sentences[0]
	})
	return res, nil
}

// assemble joins a cluster's sentences with the separator, or greedily
// re-splits them when the joined text exceeds the token cap.
func (c *Chunker) assemble(sentences []string, members []int, cluster int) []models.Chunk {
	idx := append([]int(nil), members...)
	sort.Ints(idx)
	parts := make([]string, len(idx))
	for k, i := range idx {
		parts[k] = sentences[i]
	}
	joined := strings.Join(parts, string(c.params.Separator))
	if c.counter.Count(joined) <= c.params.MaxTokens {
		return []models.Chunk{c.chunk(joined, idx, cluster)}
	}

	var (
		out []models.Chunk
		buf []int
	)
	text := func(ids []int) string {
		ss := make([]string, len(ids))
		for k, i := range ids {
			ss[k] = sentences[i]
		}
		return strings.Join(ss, " ")
	}
	for _, i := range idx {
		if len(buf) > 0 && c.counter.Count(text(append(buf[:len(buf):len(buf)], i))) > c.params.MaxTokens {
			out = append(out, c.chunk(text(buf), buf, cluster))
			buf = nil
		}
		buf = append(buf, i)
	}
	if len(buf) > 0 {
		out = append(out, c.chunk(text(buf), buf, cluster))
	}
	return out
}

func (c *Chunker) chunk(text string, ids []int, cluster int) models.Chunk {
	return models.Chunk{Text: text, Sentences: ids, Cluster: cluster, Tokens: c.counter.Count(text)}
}
