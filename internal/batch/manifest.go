// Package batch runs manifests of documents through the pipeline and writes
// the combined, résumé and essay exports.
package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/extract"
	"github.com/hyperjump/kugiri/internal/fileid"
	"github.com/hyperjump/kugiri/pkg/utils"
)

var (
	// ErrUnsupportedManifest is returned for manifests that are neither CSV nor XLSX.
	ErrUnsupportedManifest = errors.New("unsupported manifest format")
	// ErrInvalidManifest is returned when a manifest lacks a required column.
	ErrInvalidManifest = errors.New("invalid manifest")
)

const dateLayout = "2006-01-02"

var manifestHeader = []string{"id", "content", "doc_type", "created_date"}

// Entry is one manifest row.
type Entry struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	DocType     string `json:"doc_type"`
	CreatedDate string `json:"created_date,omitempty"`
}

// ReadManifest reads a .csv or .xlsx manifest. The header row must name the
// id, content and doc_type columns, in any order; created_date is optional.
func ReadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readCSV(bytes.NewReader(data))
	case ".xlsx":
		return readXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedManifest, ext)
	}
}

func readCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV manifest: %w", err)
	}
	return parseRows(records)
}

func readXLSX(r io.Reader) ([]Entry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidManifest)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidManifest)
	}
	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range manifestHeader[:3] {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidManifest, required)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		e := Entry{
			ID:          strings.TrimSpace(cell(row, "id")),
			Content:     cell(row, "content"),
			DocType:     strings.TrimSpace(cell(row, "doc_type")),
			CreatedDate: strings.TrimSpace(cell(row, "created_date")),
		}
		if e.ID == "" && strings.TrimSpace(e.Content) == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GenerateManifest walks base/<doc_type>/<file> and extracts every supported
// file into an entry. Files whose text is empty or cannot be extracted are
// skipped.
func GenerateManifest(ctx context.Context, base string, logger *zap.Logger) ([]Entry, error) {
	logger = utils.OrNop(logger)
	dirs, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to read base folder: %w", err)
	}
	ex := extract.NewExtractor()
	today := time.Now().Format(dateLayout)

	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		docType := d.Name()
		files, err := os.ReadDir(filepath.Join(base, docType))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", docType, err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if f.IsDir() || !extract.Supported(filepath.Ext(f.Name())) {
				continue
			}
			path := filepath.Join(base, docType, f.Name())
			text, err := ex.Extract(path)
			if err != nil {
				logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
				continue
			}
			if strings.TrimSpace(text) == "" {
				logger.Debug("skipping empty file", zap.String("path", path))
				continue
			}
			entries = append(entries, Entry{
				ID:          fileid.DocID(path),
				Content:     text,
				DocType:     docType,
				CreatedDate: today,
			})
		}
	}
	logger.Info("generated manifest", zap.String("base", base), zap.Int("entries", len(entries)))
	return entries, nil
}

// WriteManifest writes entries to a .csv or .xlsx manifest.
func WriteManifest(path string, entries []Entry) error {
	rows := make([][]string, 0, len(entries)+1)
	rows = append(rows, manifestHeader)
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.Content, e.DocType, e.CreatedDate})
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeCSV(path, rows)
	case ".xlsx":
		return writeXLSX(path, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedManifest, ext)
	}
}
