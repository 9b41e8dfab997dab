package nlp

import (
	"math"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// DefaultTokensPerWord approximates sub-word tokens per word for English text.
const DefaultTokensPerWord = 1.33

// BleveTokenCounter estimates tokens from the word count of the bleve unicode
// tokenizer.
type BleveTokenCounter struct {
	tokenizer analysis.Tokenizer
	ratio     float64
}

// NewBleveTokenCounter returns a counter. A ratio <= 0 uses DefaultTokensPerWord.
func NewBleveTokenCounter(ratio float64) *BleveTokenCounter {
	if ratio <= 0 {
		ratio = DefaultTokensPerWord
	}
	return &BleveTokenCounter{tokenizer: unicode.NewUnicodeTokenizer(), ratio: ratio}
}

// Count returns ceil(words * ratio).
func (c *BleveTokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	words := len(c.tokenizer.Tokenize([]byte(text)))
	return int(math.Ceil(float64(words) * c.ratio))
}
