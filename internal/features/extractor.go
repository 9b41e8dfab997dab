package features

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kugiri/internal/headings"
	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/nlp"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// Extractor builds feature records for a document's lines. Classifier and
// recognizer calls run concurrently per line; a failed or timed-out call
// leaves that line with an empty label or no entities.
type Extractor struct {
	headings    *headings.Map
	classifier  nlp.Classifier
	recognizer  nlp.EntityRecognizer
	matcher     headings.Matcher
	labels      []string
	gapRatio    float64
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithLabels sets the classifier's candidate labels.
func WithLabels(labels []string) ExtractorOption {
	return func(e *Extractor) {
		if len(labels) > 0 {
			e.labels = labels
		}
	}
}

// WithGapRatio sets the visual separation ratio.
func WithGapRatio(r float64) ExtractorOption {
	return func(e *Extractor) {
		if r > 0 {
			e.gapRatio = r
		}
	}
}

// WithConcurrency bounds the number of lines processed at once.
func WithConcurrency(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithTimeout bounds each classifier or recognizer call.
func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.timeout = d }
}

// WithHeadingMatcher adds a fallback for lines with no exact heading match.
func WithHeadingMatcher(m headings.Matcher) ExtractorOption {
	return func(e *Extractor) { e.matcher = m }
}

// NewExtractor returns an Extractor. classifier and recognizer may be nil.
func NewExtractor(hm *headings.Map, classifier nlp.Classifier, recognizer nlp.EntityRecognizer, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		headings:    hm,
		classifier:  classifier,
		recognizer:  recognizer,
		gapRatio:    DefaultGapRatio,
		concurrency: 4,
	}
	if hm != nil {
		e.labels = hm.CanonicalLabels("")
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Extract returns one record per line, in input order. It never fails.
func (e *Extractor) Extract(ctx context.Context, lines []string) []models.Line {
	out := make([]models.Line, len(lines))
	maxLen := MaxLineLength(lines)
	for i, text := range lines {
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		out[i] = models.Line{
			Text:                  text,
			Index:                 i,
			ContainsBullet:        ContainsBullet(text),
			ContainsContactInfo:   ContainsContactInfo(text),
			EndsWithConjunction:   EndsWithConjunction(text),
			StartsWithConjunction: StartsWithConjunction(text),
			IsVisuallySeparated:   IsVisuallySeparated(text, next, maxLen, e.gapRatio),
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			line := &out[i]
			line.SectionHeader = e.sectionHeader(ctx, line.Text)
			line.Classification = e.classify(ctx, i, line.Text)
			line.Entities = e.recognize(ctx, i, line.Text)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Extractor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

func (e *Extractor) sectionHeader(ctx context.Context, text string) string {
	if e.headings != nil {
		if label := e.headings.SectionHeader(text); label != "" {
			return label
		}
	}
	if e.matcher == nil {
		return ""
	}
	cctx, cancel := e.callContext(ctx)
	defer cancel()
	label, _ := e.matcher.Match(cctx, text)
	return label
}

func (e *Extractor) classify(ctx context.Context, i int, text string) models.Classification {
	if e.classifier == nil || len(e.labels) == 0 {
		return models.Classification{}
	}
	cctx, cancel := e.callContext(ctx)
	defer cancel()
	results, err := e.classifier.Classify(cctx, text, e.labels)
	if err != nil {
		e.logger.Debug("classifier failed, using empty label", zap.Int("line", i), zap.Error(err))
		return models.Classification{}
	}
	return nlp.Top(results)
}

func (e *Extractor) recognize(ctx context.Context, i int, text string) []models.Entity {
	if e.recognizer == nil {
		return nil
	}
	cctx, cancel := e.callContext(ctx)
	defer cancel()
	ents, err := e.recognizer.Recognize(cctx, text)
	if err != nil {
		e.logger.Debug("entity recognizer failed, using no entities", zap.Int("line", i), zap.Error(err))
		return nil
	}
	for j := range ents {
		ents[j].Label = models.NormalizeEntityLabel(ents[j].Label)
	}
	return ents
}
