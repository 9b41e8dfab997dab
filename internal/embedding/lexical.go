package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	"github.com/hyperjump/kugiri/pkg/utils"
)

// LexicalEmbedder embeds text as hashed term frequencies of its stemmed
// content words. Sentences that share vocabulary get similar vectors, which
// is enough to group restatements without a model on disk.
type LexicalEmbedder struct {
	dimensions int
	analyzer   *analysis.DefaultAnalyzer
}

// NewLexicalEmbedder returns an embedder producing vectors of the given
// dimensions. Text runs through the bleve unicode tokenizer, lowercasing,
// English stop word removal and the Porter stemmer.
func NewLexicalEmbedder(dimensions int) (*LexicalEmbedder, error) {
	if dimensions <= 0 {
		dimensions = 384
	}
	stopWords := analysis.NewTokenMap()
	if err := stopWords.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, fmt.Errorf("failed to load stop words: %w", err)
	}
	return &LexicalEmbedder{
		dimensions: dimensions,
		analyzer: &analysis.DefaultAnalyzer{
			Tokenizer: unicode.NewUnicodeTokenizer(),
			TokenFilters: []analysis.TokenFilter{
				lowercase.NewLowerCaseFilter(),
				stop.NewStopTokensFilter(stopWords),
				porter.NewPorterStemmer(),
			},
		},
	}, nil
}

// Terms returns the analyzed terms of text in order.
func (e *LexicalEmbedder) Terms(text string) []string {
	tokens := e.analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, string(tok.Term))
	}
	return out
}

// Embed returns the L2-normalized vector of 1+ln(tf) weights, one bucket per
// hashed term. Text without content words yields the zero vector.
func (e *LexicalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, term := range e.Terms(text) {
		counts[term]++
	}
	v := make([]float32, e.dimensions)
	for term, n := range counts {
		v[e.bucket(term)] += float32(1 + math.Log(float64(n)))
	}
	utils.NormalizeL2(v)
	return v, nil
}

func (e *LexicalEmbedder) bucket(term string) int {
	b := HashString(term) % e.dimensions
	if b < 0 {
		b += e.dimensions
	}
	return b
}

// EmbedBatch embeds each text in order.
func (e *LexicalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *LexicalEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for LexicalEmbedder.
func (e *LexicalEmbedder) Close() error {
	return nil
}
