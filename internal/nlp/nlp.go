// Package nlp defines the language capabilities the segmentation stages
// consume and offline heuristic implementations of each.
package nlp

import (
	"context"

	"github.com/hyperjump/kugiri/internal/models"
)

// SentenceSegmenter splits text into ordered sentences.
type SentenceSegmenter interface {
	Split(ctx context.Context, text string) ([]string, error)
}

// TokenCounter estimates the token count of text. It must be monotonic with
// length and consistent within a run.
type TokenCounter interface {
	Count(text string) int
}

// Classifier ranks candidate labels for text, highest score first.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]models.Classification, error)
}

// EntityRecognizer finds named entities in text. Labels are normalized with
// models.NormalizeEntityLabel.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]models.Entity, error)
}

// GrammarValidator reports whether text reads as one plausible sentence or
// fragment. Implementations return false on any internal failure.
type GrammarValidator interface {
	Valid(ctx context.Context, text string) bool
}

// Top returns the first classification, or the zero value when there is none.
func Top(results []models.Classification) models.Classification {
	if len(results) == 0 {
		return models.Classification{}
	}
	return results[0]
}
