package headings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperjump/kugiri/internal/vector"
)

// DefaultEmbeddingThreshold is the minimum mean cosine similarity for an
// embedding heading match.
const DefaultEmbeddingThreshold = 0.85

// Matcher resolves a line that failed the exact lookup to a canonical
// section heading. It returns false when nothing is close enough.
type Matcher interface {
	Match(ctx context.Context, line string) (string, bool)
}

// FuzzyMatcher accepts section-heading surface forms within an edit-distance
// budget. Lines much longer than any surface form are never considered.
type FuzzyMatcher struct {
	m           *Map
	maxDistance int
	forms       []string
	longest     int
}

// NewFuzzyMatcher returns a FuzzyMatcher over the section headings of m.
func NewFuzzyMatcher(m *Map, maxDistance int) *FuzzyMatcher {
	if maxDistance < 1 {
		maxDistance = 1
	}
	f := &FuzzyMatcher{m: m, maxDistance: maxDistance, forms: m.Keys(TypeSectionHeading)}
	for _, form := range f.forms {
		if n := len([]rune(form)); n > f.longest {
			f.longest = n
		}
	}
	return f
}

// Match returns the canonical label of the closest surface form. Ties go to
// the lexically smallest form so results are stable.
func (f *FuzzyMatcher) Match(_ context.Context, line string) (string, bool) {
	key := normalize(line)
	n := len([]rune(key))
	if n == 0 || n > f.longest+f.maxDistance {
		return "", false
	}
	best, bestDist := "", f.maxDistance+1
	for _, form := range f.forms {
		size := len([]rune(form))
		// one edit per four runes, capped by maxDistance
		budget := size / 4
		if budget > f.maxDistance {
			budget = f.maxDistance
		}
		diff := size - n
		if diff < 0 {
			diff = -diff
		}
		if budget == 0 || diff > budget {
			continue
		}
		if d := editDistance(key, form); d <= budget && d < bestDist {
			best, bestDist = form, d
		}
	}
	if best == "" {
		return "", false
	}
	return f.m.SectionHeader(best), true
}

// Embedder is the subset of an embedding backend the matcher needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingMatcher compares a line with every surface form of each section
// heading and picks the label with the highest mean similarity.
type EmbeddingMatcher struct {
	m         *Map
	embedder  Embedder
	threshold float64

	once   sync.Once
	err    error
	labels []string
	forms  map[string][][]float32
}

// NewEmbeddingMatcher returns an EmbeddingMatcher. A threshold <= 0 uses
// DefaultEmbeddingThreshold.
func NewEmbeddingMatcher(m *Map, embedder Embedder, threshold float64) *EmbeddingMatcher {
	if threshold <= 0 {
		threshold = DefaultEmbeddingThreshold
	}
	return &EmbeddingMatcher{m: m, embedder: embedder, threshold: threshold}
}

func (e *EmbeddingMatcher) prepare(ctx context.Context) error {
	e.once.Do(func() {
		syn := e.m.SynonymsByLabel()
		e.forms = make(map[string][][]float32)
		for _, label := range e.m.CanonicalLabels(TypeSectionHeading) {
			forms := syn[label]
			if len(forms) == 0 {
				continue
			}
			vecs, err := e.embedder.EmbedBatch(ctx, forms)
			if err != nil {
				e.err = fmt.Errorf("failed to embed surface forms of %s: %w", label, err)
				return
			}
			e.labels = append(e.labels, label)
			e.forms[label] = vecs
		}
	})
	return e.err
}

// Match embeds line and returns the best label when its mean similarity
// reaches the threshold. Embedding failures count as no match.
func (e *EmbeddingMatcher) Match(ctx context.Context, line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || e.prepare(ctx) != nil {
		return "", false
	}
	vecs, err := e.embedder.EmbedBatch(ctx, []string{line})
	if err != nil || len(vecs) != 1 {
		return "", false
	}
	best, bestScore := "", -1.0
	for _, label := range e.labels {
		forms := e.forms[label]
		var sum float64
		for _, v := range forms {
			sum += vector.Cosine(vecs[0], v)
		}
		if avg := sum / float64(len(forms)); avg > bestScore {
			best, bestScore = label, avg
		}
	}
	if best == "" || bestScore < e.threshold {
		return "", false
	}
	return best, true
}

// Chain tries each matcher in order.
type Chain []Matcher

// Match returns the first successful match.
func (c Chain) Match(ctx context.Context, line string) (string, bool) {
	for _, m := range c {
		if m == nil {
			continue
		}
		if label, ok := m.Match(ctx, line); ok {
			return label, true
		}
	}
	return "", false
}
