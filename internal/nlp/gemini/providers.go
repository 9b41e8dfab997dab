package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/pkg/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompts/classify.md
var classifyPrompt string

//go:embed prompts/entities.md
var entitiesPrompt string

//go:embed prompts/grammar.md
var grammarPrompt string

const defaultMaxLogLength = 200

type base struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// Option configures a Gemini provider.
type Option func(*base)

// WithLogger sets the logger used for request and response previews.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) { b.logger = l }
}

// WithMaxLogLength caps prompt and response previews in debug logs.
func WithMaxLogLength(n int) Option {
	return func(b *base) {
		if n > 0 {
			b.maxLogLen = n
		}
	}
}

func newBase(g contentGenerator, opts []Option) base {
	b := base{generator: g, maxLogLen: defaultMaxLogLength}
	for _, o := range opts {
		o(&b)
	}
	b.logger = utils.OrNop(b.logger)
	return b
}

func (b *base) call(ctx context.Context, kind, prompt string) (string, error) {
	b.logger.Debug("gemini request",
		zap.String("kind", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, b.maxLogLen)),
	)
	raw, err := b.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}
	b.logger.Debug("gemini response",
		zap.String("kind", kind),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, b.maxLogLen)),
	)
	return raw, nil
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// Classifier asks the model to score each candidate label for a line.
type Classifier struct {
	base
}

// NewClassifier returns a Classifier.
func NewClassifier(g contentGenerator, opts ...Option) *Classifier {
	return &Classifier{base: newBase(g, opts)}
}

// Classify returns the candidate labels the model scored, highest first.
// Labels outside the candidate set are dropped.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]models.Classification, error) {
	if strings.TrimSpace(text) == "" || len(labels) == 0 {
		return nil, nil
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, fmt.Errorf("marshal labels: %w", err)
	}
	prompt := fill(classifyPrompt, map[string]string{"TEXT": quote(text), "LABELS": string(labelsJSON)})
	raw, err := c.call(ctx, "classify", prompt)
	if err != nil {
		return nil, err
	}
	var data struct {
		Labels []map[string]any `json:"labels"`
	}
	if err := decode(raw, &data); err != nil {
		return nil, err
	}
	allowed := make(map[string]string, len(labels))
	for _, l := range labels {
		allowed[strings.ToUpper(l)] = l
	}
	var out []models.Classification
	for _, item := range data.Labels {
		label, ok := allowed[strings.ToUpper(coerceString(item["label"]))]
		score := coerceFloat(item["score"])
		if !ok || math.IsNaN(score) {
			continue
		}
		out = append(out, models.Classification{Label: label, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Recognizer asks the model for named entities.
type Recognizer struct {
	base
}

// NewRecognizer returns a Recognizer.
func NewRecognizer(g contentGenerator, opts ...Option) *Recognizer {
	return &Recognizer{base: newBase(g, opts)}
}

// Recognize returns entities with normalized labels.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]models.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	raw, err := r.call(ctx, "entities", fill(entitiesPrompt, map[string]string{"TEXT": quote(text)}))
	if err != nil {
		return nil, err
	}
	var data struct {
		Entities []map[string]any `json:"entities"`
	}
	if err := decode(raw, &data); err != nil {
		return nil, err
	}
	var out []models.Entity
	for _, item := range data.Entities {
		span := coerceString(item["text"])
		if span == "" {
			continue
		}
		score := coerceFloat(item["score"])
		if math.IsNaN(score) {
			score = 0
		}
		out = append(out, models.Entity{
			Text:  span,
			Label: models.NormalizeEntityLabel(coerceString(item["label"])),
			Score: score,
		})
	}
	return out, nil
}

// Validator asks the model whether merged text reads as one sentence or
// fragment. Results are memoized per text so repeated checks agree.
type Validator struct {
	base
	mu   sync.Mutex
	memo map[string]bool
}

// NewValidator returns a Validator.
func NewValidator(g contentGenerator, opts ...Option) *Validator {
	return &Validator{base: newBase(g, opts), memo: make(map[string]bool)}
}

// Valid returns false on any generator or parse failure.
func (v *Validator) Valid(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	v.mu.Lock()
	ok, hit := v.memo[text]
	v.mu.Unlock()
	if hit {
		return ok
	}
	raw, err := v.call(ctx, "grammar", fill(grammarPrompt, map[string]string{"TEXT": quote(text)}))
	if err != nil {
		v.logger.Debug("grammar check failed", zap.Error(err))
		return false
	}
	var data map[string]any
	if err := decode(raw, &data); err != nil {
		v.logger.Debug("grammar check unparseable", zap.Error(err))
		return false
	}
	ok = coerceBool(data["grammatical"])
	v.mu.Lock()
	v.memo[text] = ok
	v.mu.Unlock()
	return ok
}
