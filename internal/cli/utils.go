// Package cli renders kugiri results for the terminal or as JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kugiri/internal/batch"
	"github.com/hyperjump/kugiri/internal/changepoint"
	"github.com/hyperjump/kugiri/internal/freeform"
	"github.com/hyperjump/kugiri/internal/pipeline"
	"github.com/hyperjump/kugiri/internal/storage"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteResume writes a parsed résumé.
func WriteResume(w io.Writer, r *pipeline.ResumeResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "\n%d lines merged into %d\n\n", len(r.Lines), len(r.Merged))
	if r.Resume == nil {
		return nil
	}
	for _, f := range r.Resume.Fields() {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%s]\n", f.Key)
		if f.Value == "" {
			fmt.Fprintln(w, "(empty)")
			continue
		}
		fmt.Fprintln(w, f.Value)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteChunks writes free-form chunks.
func WriteChunks(w io.Writer, r *freeform.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "\n%d sentences, %d chunks (threshold %.3f, resolution %.3f, %d tokens)\n\n",
		len(r.Sentences), len(r.Chunks), r.Threshold, r.Resolution, r.TotalTokens)
	for i, c := range r.Chunks {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Chunk %d | cluster %d | %d tokens | sentences %v\n", i+1, c.Cluster, c.Tokens, c.Sentences)
		fmt.Fprintf(w, "\n%s\n\n", c.Text)
	}
	return nil
}

// WriteSegments writes change-point segments. Text output previews each
// segment's first line.
func WriteSegments(w io.Writer, r *changepoint.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "\n%d segments, boundaries %v\n\n", len(r.Segments), r.Boundaries)
	for i, s := range r.Segments {
		first := ""
		if len(s.Lines) > 0 {
			first = s.Lines[0]
		}
		fmt.Fprintf(w, "%3d  lines %d-%d  %s\n", i+1, s.Start, s.End-1, TruncateWords(first, 12))
	}
	fmt.Fprintln(w)
	return nil
}

// WriteRows writes the flattened rows of a processed document.
func WriteRows(w io.Writer, id string, rows []pipeline.Row, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			ID   string         `json:"id"`
			Rows []pipeline.Row `json:"rows"`
		}{id, rows})
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, r.Category, utils.Truncate(strings.ReplaceAll(r.Content, "\n", " "), 80))
	}
	return nil
}

// WriteBatchSummary writes the outcome of a batch run.
func WriteBatchSummary(w io.Writer, s batch.Summary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "documents:  %d   # %d resumes, %d free-form\n", s.Documents, s.Resumes, s.Essays)
	fmt.Fprintf(w, "failed:     %d\n", s.Failed)
	fmt.Fprintf(w, "rows:       %d\n", s.Rows)
	fmt.Fprintf(w, "duration:   %s\n", s.Duration)
	for _, f := range s.Files {
		fmt.Fprintf(w, "wrote:      %s\n", f)
	}
	return nil
}

// Status is what the status command reports.
type Status struct {
	storage.Stats
	DatabasePath     string   `json:"database_path"`
	ProviderBackend  string   `json:"provider_backend"`
	EmbeddingBackend string   `json:"embedding_backend"`
	EmbeddingDims    int      `json:"embedding_dimensions"`
	Clusterer        string   `json:"clusterer"`
	WatchDirectories []string `json:"watch_directories,omitempty"`
}

// WriteStatus writes stored counts and the active configuration.
func WriteStatus(w io.Writer, s Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "documents:          %d   # count of stored documents\n", s.Documents)
	fmt.Fprintf(w, "chunks:             %d   # count of stored chunks\n", s.Chunks)
	fmt.Fprintf(w, "disk_usage_bytes:   %d   # database on disk\n", s.DiskBytes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "database_path:      %s\n", s.DatabasePath)
	fmt.Fprintf(w, "provider_backend:   %s\n", s.ProviderBackend)
	fmt.Fprintf(w, "embedding_backend:  %s\n", s.EmbeddingBackend)
	if s.EmbeddingDims > 0 {
		fmt.Fprintf(w, "embedding_dims:     %d\n", s.EmbeddingDims)
	}
	fmt.Fprintf(w, "clusterer:          %s\n", s.Clusterer)
	for _, d := range s.WatchDirectories {
		fmt.Fprintf(w, "watch_directory:    %s\n", d)
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
