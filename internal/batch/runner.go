package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/pipeline"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// Processor runs one document through the segmentation flows.
type Processor interface {
	Process(ctx context.Context, docType, text string) (*pipeline.Output, error)
}

// Store persists processed documents.
type Store interface {
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
}

// Result is the outcome for one manifest entry. Err is set when the entry
// failed; the rest of the batch still runs.
type Result struct {
	ID      string         `json:"id"`
	DocType string         `json:"doc_type"`
	Rows    []pipeline.Row `json:"rows"`
	Err     error          `json:"-"`
}

// Summary describes a finished batch.
type Summary struct {
	Documents int           `json:"documents"`
	Resumes   int           `json:"resumes"`
	Essays    int           `json:"essays"`
	Failed    int           `json:"failed"`
	Rows      int           `json:"rows"`
	Files     []string      `json:"files,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Runner processes manifest entries on a bounded worker pool.
type Runner struct {
	processor Processor
	store     Store
	workers   int
	logger    *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithWorkers sets how many documents are processed at once. Values below 1
// mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithStore persists every processed document and its rows.
func WithStore(s Store) Option {
	return func(r *Runner) { r.store = s }
}

// NewRunner returns a Runner over p.
func NewRunner(p Processor, opts ...Option) *Runner {
	r := &Runner{processor: p}
	for _, o := range opts {
		o(r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Run processes entries and returns one result per entry, in manifest
// order. Only cancellation of ctx is returned as an error.
func (r *Runner) Run(ctx context.Context, entries []Entry) ([]Result, error) {
	results := make([]Result, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range entries {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runOne(gctx, entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, e Entry) Result {
	res := Result{ID: e.ID, DocType: e.DocType}
	out, err := r.processor.Process(ctx, e.DocType, e.Content)
	if err != nil {
		res.Err = err
		r.logger.Warn("document failed", zap.String("id", e.ID), zap.Error(err))
		return res
	}
	res.Rows = out.Rows()

	if r.store != nil {
		doc, chunks := out.Records(e.ID, "", e.Content)
		if t, err := time.Parse(dateLayout, e.CreatedDate); err == nil {
			doc.CreatedAt = t
		}
		if err := r.store.SaveDocument(ctx, doc, chunks); err != nil {
			res.Err = fmt.Errorf("failed to save document: %w", err)
			r.logger.Warn("document not saved", zap.String("id", e.ID), zap.Error(err))
			return res
		}
	}
	r.logger.Debug("document processed",
		zap.String("id", e.ID),
		zap.String("doc_type", e.DocType),
		zap.Int("rows", len(res.Rows)))
	return res
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Documents++
		if r.Err != nil {
			s.Failed++
			continue
		}
		if pipeline.IsResumeType(r.DocType) {
			s.Resumes++
		} else {
			s.Essays++
		}
		s.Rows += len(r.Rows)
	}
	return s
}
