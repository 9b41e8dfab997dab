// Package pipeline wires the segmentation stages into the résumé, free-form
// and change-point flows.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/changepoint"
	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/features"
	"github.com/hyperjump/kugiri/internal/freeform"
	"github.com/hyperjump/kugiri/internal/merge"
	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/sections"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// Output categories.
const (
	CategoryFreeForm     = "free-form"
	CategoryResumePrefix = "resume-"
)

// IsResumeType reports whether docType routes to the résumé flow.
func IsResumeType(docType string) bool {
	switch strings.ToLower(strings.TrimSpace(docType)) {
	case "resume", "resumes":
		return true
	}
	return false
}

// Components are the stages a Pipeline runs. Embedder is closed by
// Pipeline.Close and may be nil.
type Components struct {
	Extractor   *features.Extractor
	Merger      *merge.Engine
	Sections    *sections.Segmenter
	Chunker     *freeform.Chunker
	ChangePoint *changepoint.Segmenter
	Embedder    embedding.Embedder
}

// Pipeline runs documents through the stages. It keeps no per-document
// state.
type Pipeline struct {
	c      Components
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a Pipeline over c.
func New(c Components, opts ...Option) *Pipeline {
	p := &Pipeline{c: c}
	for _, o := range opts {
		o(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Close releases the embedder.
func (p *Pipeline) Close() error {
	if p.c.Embedder == nil {
		return nil
	}
	return p.c.Embedder.Close()
}

// ResumeResult carries every intermediate stage of a résumé parse.
type ResumeResult struct {
	Lines   []models.Line        `json:"lines"`
	Merged  []models.MergedLine  `json:"merged"`
	Refined []models.Line        `json:"refined"`
	Resume  *models.ParsedResume `json:"resume"`
}

// ParseResume runs the two-pass résumé flow: lines are featurized, merged,
// featurized again on the merged text and handed to the section machine.
func (p *Pipeline) ParseResume(ctx context.Context, text string) (*ResumeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := features.ParseIntoLines(text)
	lines := p.c.Extractor.Extract(ctx, raw)
	merged := p.c.Merger.Merge(ctx, lines)
	refined := p.c.Extractor.Extract(ctx, merge.Texts(merged))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &ResumeResult{
		Lines:   lines,
		Merged:  merged,
		Refined: refined,
		Resume:  p.c.Sections.Segment(refined),
	}
	p.logger.Debug("parsed resume",
		zap.Int("lines", len(lines)),
		zap.Int("merged", len(merged)))
	return res, nil
}

// ChunkFreeForm runs the free-form chunker over text.
func (p *Pipeline) ChunkFreeForm(ctx context.Context, text string) (*freeform.Result, error) {
	return p.c.Chunker.Chunk(ctx, text)
}

// CoarseSegments featurizes the lines of text and runs change-point
// detection over them.
func (p *Pipeline) CoarseSegments(ctx context.Context, text string) (*changepoint.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines := p.c.Extractor.Extract(ctx, features.ParseIntoLines(text))
	return p.c.ChangePoint.Segment(ctx, lines)
}

// Row is one output chunk of a processed document.
type Row struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// Output is a processed document.
type Output struct {
	DocType  string           `json:"doc_type"`
	Resume   *ResumeResult    `json:"resume,omitempty"`
	FreeForm *freeform.Result `json:"free_form,omitempty"`
}

// Rows flattens the output. Résumé fields become "resume-<key>" rows, one
// per field including empty ones; free-form chunks become "free-form" rows.
func (o *Output) Rows() []Row {
	var rows []Row
	if o.Resume != nil && o.Resume.Resume != nil {
		for _, f := range o.Resume.Resume.Fields() {
			rows = append(rows, Row{Category: CategoryResumePrefix + f.Key, Content: f.Value})
		}
	}
	if o.FreeForm != nil {
		for _, c := range o.FreeForm.Chunks {
			rows = append(rows, Row{Category: CategoryFreeForm, Content: c.Text})
		}
	}
	return rows
}

// Records converts the output into a storable document and one chunk per
// row. Chunk IDs are random.
func (o *Output) Records(id, source, content string) (*models.Document, []*models.DocumentChunk) {
	doc := &models.Document{ID: id, DocType: o.DocType, Source: source, Content: content}
	rows := o.Rows()
	chunks := make([]*models.DocumentChunk, len(rows))
	for i, r := range rows {
		chunks[i] = &models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: id,
			Category:   r.Category,
			Content:    r.Content,
			ChunkIndex: i,
		}
	}
	return doc, chunks
}

// Process routes text by docType and runs the matching flow.
func (p *Pipeline) Process(ctx context.Context, docType, text string) (*Output, error) {
	out := &Output{DocType: docType}
	if IsResumeType(docType) {
		r, err := p.ParseResume(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse resume: %w", err)
		}
		out.Resume = r
		return out, nil
	}
	r, err := p.ChunkFreeForm(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk text: %w", err)
	}
	out.FreeForm = r
	return out, nil
}
