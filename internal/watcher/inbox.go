package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/extract"
	"github.com/hyperjump/kugiri/internal/fileid"
	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/pipeline"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// Processor runs a document through the segmentation flows.
type Processor interface {
	Process(ctx context.Context, docType, text string) (*pipeline.Output, error)
}

// DocumentStore is the persistence the inbox needs.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	DeleteDocument(ctx context.Context, id string) error
}

// Result is the JSON written for each processed inbox file.
type Result struct {
	ID          string           `json:"id"`
	DocType     string           `json:"doc_type"`
	Source      string           `json:"source"`
	ProcessedAt time.Time        `json:"processed_at"`
	Rows        []pipeline.Row   `json:"rows"`
	Output      *pipeline.Output `json:"output"`
}

// Inbox is a Handler that extracts, processes and records inbox files. A
// file's doc type is the name of its parent folder; files directly under a
// root get the default doc type.
type Inbox struct {
	roots          []string
	processor      Processor
	extractor      *extract.Extractor
	store          DocumentStore
	outputDir      string
	defaultDocType string
	logger         *zap.Logger
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithInboxLogger sets the logger.
func WithInboxLogger(l *zap.Logger) InboxOption {
	return func(in *Inbox) { in.logger = l }
}

// WithStore persists processed documents. Removed files are deleted from it.
func WithStore(s DocumentStore) InboxOption {
	return func(in *Inbox) { in.store = s }
}

// WithDefaultDocType sets the doc type for files directly under a root.
func WithDefaultDocType(t string) InboxOption {
	return func(in *Inbox) {
		if t != "" {
			in.defaultDocType = t
		}
	}
}

// NewInbox returns an Inbox writing results under outputDir.
func NewInbox(roots []string, p Processor, outputDir string, opts ...InboxOption) *Inbox {
	in := &Inbox{
		processor:      p,
		extractor:      extract.NewExtractor(),
		outputDir:      outputDir,
		defaultDocType: "essays",
	}
	for _, r := range roots {
		in.roots = append(in.roots, filepath.Clean(r))
	}
	for _, o := range opts {
		o(in)
	}
	in.logger = utils.OrNop(in.logger)
	return in
}

// DocType returns the doc type for path.
func (in *Inbox) DocType(path string) string {
	dir := filepath.Dir(filepath.Clean(path))
	for _, r := range in.roots {
		if dir == r {
			return in.defaultDocType
		}
	}
	if name := filepath.Base(dir); name != "." && name != string(filepath.Separator) {
		return name
	}
	return in.defaultDocType
}

// resultPath returns where the JSON result for path is written.
func (in *Inbox) resultPath(path string) string {
	return filepath.Join(in.outputDir, in.DocType(path), strings.TrimSuffix(fileid.DocID(path), filepath.Ext(path))+".json")
}

// Handle processes path. Failures are logged.
func (in *Inbox) Handle(ctx context.Context, path string) {
	if _, err := in.Process(ctx, path); err != nil {
		in.logger.Error("failed to process inbox file", zap.String("path", path), zap.Error(err))
	}
}

// Process extracts path, runs it through the processor, writes the JSON
// result and persists it when a store is configured.
func (in *Inbox) Process(ctx context.Context, path string) (*Result, error) {
	text, err := in.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	docType := in.DocType(path)
	out, err := in.processor.Process(ctx, docType, text)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:          fileid.DocID(path),
		DocType:     docType,
		Source:      path,
		ProcessedAt: time.Now().UTC(),
		Rows:        out.Rows(),
		Output:      out,
	}
	dest := in.resultPath(path)
	if err := writeJSON(dest, res); err != nil {
		return nil, err
	}

	if in.store != nil {
		doc, chunks := out.Records(fileid.PathID(path), path, text)
		if err := in.store.SaveDocument(ctx, doc, chunks); err != nil {
			return nil, fmt.Errorf("failed to save document: %w", err)
		}
	}
	in.logger.Info("processed inbox file",
		zap.String("path", path),
		zap.String("doc_type", docType),
		zap.Int("rows", len(res.Rows)),
		zap.String("output", dest))
	return res, nil
}

// Remove deletes the stored document and JSON result for path.
func (in *Inbox) Remove(ctx context.Context, path string) {
	if err := os.Remove(in.resultPath(path)); err != nil && !os.IsNotExist(err) {
		in.logger.Warn("failed to remove result", zap.String("path", path), zap.Error(err))
	}
	if in.store == nil {
		return
	}
	if err := in.store.DeleteDocument(ctx, fileid.PathID(path)); err != nil {
		in.logger.Warn("failed to delete document", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("removed inbox file", zap.String("path", path))
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
