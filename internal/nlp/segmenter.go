package nlp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// ProseSegmenter splits paragraphs into sentences with the prose punkt
// segmenter, which knows common abbreviations, initials and decimals.
// Blank lines always end a sentence.
type ProseSegmenter struct{}

// NewProseSegmenter returns a ProseSegmenter.
func NewProseSegmenter() *ProseSegmenter {
	return &ProseSegmenter{}
}

// Split returns the sentences of text with inner whitespace collapsed.
func (s *ProseSegmenter) Split(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		doc, err := prose.NewDocument(para,
			prose.WithTokenization(false),
			prose.WithTagging(false),
			prose.WithExtraction(false))
		if err != nil {
			return nil, fmt.Errorf("failed to segment text: %w", err)
		}
		for _, sent := range doc.Sentences() {
			if t := strings.TrimSpace(sent.Text); t != "" {
				out = append(out, t)
			}
		}
	}
	return out, nil
}
