package freeform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/graph"
	"github.com/hyperjump/kugiri/internal/nlp"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) Close() error    { return nil }

type failingSegmenter struct{}

func (failingSegmenter) Split(context.Context, string) ([]string, error) {
	return nil, errors.New("segmenter down")
}

func TestChunkSentences_TwoClusteredTwoIsolated(t *testing.T) {
	sentences := []string{
		"The team shipped the release.",
		"The release shipped on time.",
		"Penguins live in Antarctica.",
		"Jazz originated in New Orleans.",
	}
	emb := embedding.NewMockEmbedder(4).
		WithVector(sentences[0], []float32{1, 0, 0, 0}).
		WithVector(sentences[1], []float32{0.95, 0.3122, 0, 0}).
		WithVector(sentences[2], []float32{0, 0, 1, 0}).
		WithVector(sentences[3], []float32{0, 0, 0, 1})

	c := NewChunker(nil, emb, nil)
	res, err := c.ChunkSentences(context.Background(), sentences)
	require.NoError(t, err)

	require.Len(t, res.Chunks, 3)
	assert.Equal(t, sentences[0]+DefaultSeparator+sentences[1], res.Chunks[0].Text)
	assert.Equal(t, []int{0, 1}, res.Chunks[0].Sentences)
	assert.Equal(t, 0, res.Chunks[0].Cluster)
	assert.Equal(t, sentences[2], res.Chunks[1].Text)
	assert.Equal(t, -1, res.Chunks[1].Cluster)
	assert.Equal(t, []int{3}, res.Chunks[2].Sentences)
	assert.Equal(t, 1, emb.Calls(), "embeddings must be requested in one batch")

	assert.InDelta(t, 0.3, res.Threshold, 1e-9)
	assert.Less(t, res.Resolution, 1.0)
}

func TestChunkSentences_TokenCapResplits(t *testing.T) {
	sentences := []string{
		"alpha beta gamma.",
		"delta epsilon zeta.",
		"eta theta iota.",
		"kappa lambda mu.",
		"nu xi omicron.",
	}
	emb := embedding.NewMockEmbedder(3)
	for _, s := range sentences {
		emb.WithVector(s, []float32{1, 1, 1})
	}
	p := DefaultParams()
	p.MaxTokens = 10
	c := NewChunker(nil, emb, nlp.NewBleveTokenCounter(0), WithParams(p))

	res, err := c.ChunkSentences(context.Background(), sentences)
	require.NoError(t, err)

	require.Len(t, res.Chunks, 3)
	assert.Equal(t, "alpha beta gamma. delta epsilon zeta.", res.Chunks[0].Text)
	assert.Equal(t, []int{0, 1}, res.Chunks[0].Sentences)
	assert.Equal(t, []int{2, 3}, res.Chunks[1].Sentences)
	assert.Equal(t, []int{4}, res.Chunks[2].Sentences)
	for _, ch := range res.Chunks {
		assert.LessOrEqual(t, ch.Tokens, p.MaxTokens)
		assert.Equal(t, 0, ch.Cluster)
	}
}

func TestChunkSentences_OversizedSentenceStandsAlone(t *testing.T) {
	long := "one two three four five six seven eight nine ten eleven twelve."
	sentences := []string{"short one.", long, "short two."}
	emb := embedding.NewMockEmbedder(2)
	for _, s := range sentences {
		emb.WithVector(s, []float32{1, 0})
	}
	p := DefaultParams()
	p.MaxTokens = 6
	c := NewChunker(nil, emb, nlp.NewBleveTokenCounter(0), WithParams(p))

	res, err := c.ChunkSentences(context.Background(), sentences)
	require.NoError(t, err)
	for _, ch := range res.Chunks {
		assert.NotEmpty(t, ch.Text)
		if ch.Tokens > p.MaxTokens {
			assert.Len(t, ch.Sentences, 1, "only a single sentence may exceed the cap")
		}
	}
	assertPartition(t, res, len(sentences))
}

func TestChunkSentences_EmbeddingFailureYieldsSingletons(t *testing.T) {
	sentences := []string{"First.", "Second.", "Third."}
	c := NewChunker(nil, failingEmbedder{}, nil)

	res, err := c.ChunkSentences(context.Background(), sentences)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	for i, ch := range res.Chunks {
		assert.Equal(t, []int{i}, ch.Sentences)
		assert.Equal(t, sentences[i], ch.Text)
		assert.Equal(t, -1, ch.Cluster)
	}
}

func TestChunk_SegmenterFailureUsesWholeText(t *testing.T) {
	c := NewChunker(failingSegmenter{}, embedding.NewMockEmbedder(8), nil)
	res, err := c.Chunk(context.Background(), "  Some text. More text.  ")
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "Some text. More text.", res.Chunks[0].Text)
}

func TestChunk_EmptyAndSingle(t *testing.T) {
	c := NewChunker(nlp.NewProseSegmenter(), embedding.NewMockEmbedder(8), nil)

	res, err := c.Chunk(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, DefaultParams().LowerBound, res.Threshold)

	res, err = c.Chunk(context.Background(), "Only one sentence here.")
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, []int{0}, res.Chunks[0].Sentences)
}

func TestChunk_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewChunker(nlp.NewProseSegmenter(), embedding.NewMockEmbedder(8), nil)
	_, err := c.Chunk(ctx, "A sentence. Another one.")
	assert.ErrorIs(t, err, context.Canceled)
}

func assertPartition(t *testing.T, res *Result, n int) {
	t.Helper()
	seen := make([]int, n)
	for _, ch := range res.Chunks {
		require.NotEmpty(t, ch.Sentences)
		for _, i := range ch.Sentences {
			seen[i]++
		}
	}
	for i, count := range seen {
		assert.Equal(t, 1, count, "sentence %d", i)
	}
	for i := 1; i < len(res.Chunks); i++ {
		assert.Less(t, res.Chunks[i-1].Sentences[0], res.Chunks[i].Sentences[0])
	}
}

func TestChunkSentences_PartitionAndCap(t *testing.T) {
	clusterers := map[string]graph.Clusterer{
		"cpm":     graph.NewCPMClusterer(),
		"louvain": graph.NewLouvainClusterer(1),
	}
	for name, cl := range clusterers {
		for _, n := range []int{2, 5, 17, 40} {
			t.Run(fmt.Sprintf("%s/%d", name, n), func(t *testing.T) {
				sentences := make([]string, n)
				for i := range sentences {
					sentences[i] = fmt.Sprintf("Sentence number %d talks about topic %d in detail.", i, i%4)
				}
				p := DefaultParams()
				p.MaxTokens = 40
				c := NewChunker(nil, embedding.NewMockEmbedder(16), nil, WithParams(p), WithClusterer(cl))

				res, err := c.ChunkSentences(context.Background(), sentences)
				require.NoError(t, err)
				assertPartition(t, res, n)
				for _, ch := range res.Chunks {
					if len(ch.Sentences) > 1 {
						assert.LessOrEqual(t, ch.Tokens, p.MaxTokens)
					}
				}
				assert.GreaterOrEqual(t, res.Threshold, p.LowerBound)
				assert.LessOrEqual(t, res.Threshold, p.UpperBound)
				assert.GreaterOrEqual(t, res.Resolution, p.MinResolution)
				assert.LessOrEqual(t, res.Resolution, p.MaxResolution)
			})
		}
	}
}

func TestDynamicThreshold(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name string
		sim  [][]float64
		want float64
	}{
		{"empty", nil, 0.3},
		{"single", [][]float64{{1}}, 0.3},
		{"clamped low", [][]float64{{1, 0.1}, {0.1, 1}}, 0.3},
		{"clamped high", [][]float64{{1, 0.95}, {0.95, 1}}, 0.7},
		{
			name: "percentile",
			sim: [][]float64{
				{1, 0.4, 0.5},
				{0.4, 1, 0.6},
				{0.5, 0.6, 1},
			},
			want: 0.55,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DynamicThreshold(tt.sim, p), 1e-9)
		})
	}
}

func TestDynamicResolution(t *testing.T) {
	p := DefaultParams()
	want := 0.6 + 0.03*math.Log(4+20+1) + 0.2*(1-0.5)
	assert.InDelta(t, want, DynamicResolution(4, 20, 0.5, p), 1e-9)

	for _, tc := range []struct {
		n, tokens int
		avg       float64
	}{
		{0, 0, 0}, {1, 5, 0}, {1000, 1_000_000, -1}, {3, 10, 1}, {2, 2, math.NaN()},
	} {
		r := DynamicResolution(tc.n, tc.tokens, tc.avg, p)
		assert.GreaterOrEqual(t, r, 0.4)
		assert.LessOrEqual(t, r, 1.5)
	}
}

func TestWithParams_FillsZeroFields(t *testing.T) {
	c := NewChunker(nil, nil, nil, WithParams(Params{MaxTokens: 50}))
	got := c.Params()
	assert.Equal(t, 50, got.MaxTokens)
	assert.Equal(t, 75.0, got.Percentile)
	assert.Equal(t, Separator(DefaultSeparator), got.Separator)
	assert.Equal(t, 1.5, got.MaxResolution)
}
