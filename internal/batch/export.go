package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kugiri/internal/pipeline"
)

// Export file names.
const (
	CombinedCSV  = "combined.csv"
	ResumesCSV   = "resumes.csv"
	EssaysCSV    = "essays.csv"
	CombinedXLSX = "combined.xlsx"
)

var exportHeader = []string{"id", "category", "content"}

// Export writes the batch results under dir and returns the written paths.
// combined.csv holds every row, résumés first; resumes.csv carries the bare
// field key as category; essays.csv holds the free-form rows. Failed
// documents are left out.
func Export(dir string, results []Result, xlsx bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	combined := [][]string{exportHeader}
	resumes := [][]string{exportHeader}
	essays := [][]string{exportHeader}
	for _, r := range results {
		if r.Err != nil || !pipeline.IsResumeType(r.DocType) {
			continue
		}
		for _, row := range r.Rows {
			combined = append(combined, []string{r.ID, row.Category, row.Content})
			resumes = append(resumes, []string{r.ID, strings.TrimPrefix(row.Category, pipeline.CategoryResumePrefix), row.Content})
		}
	}
	for _, r := range results {
		if r.Err != nil || pipeline.IsResumeType(r.DocType) {
			continue
		}
		for _, row := range r.Rows {
			combined = append(combined, []string{r.ID, row.Category, row.Content})
			essays = append(essays, []string{r.ID, row.Category, row.Content})
		}
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{CombinedCSV, combined},
		{ResumesCSV, resumes},
		{EssaysCSV, essays},
	}
	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeCSV(path, f.rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if xlsx {
		path := filepath.Join(dir, CombinedXLSX)
		if err := writeXLSX(path, combined); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
