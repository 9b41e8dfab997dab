package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kugiri/internal/config"
	"github.com/hyperjump/kugiri/internal/fileid"
	"github.com/hyperjump/kugiri/internal/pipeline"
	"github.com/hyperjump/kugiri/internal/storage"
)

const inboxResume = `Jane Smith
jane.smith@example.com | (555) 123-4567
EDUCATION
B.S. in Computer Science, Example University
EXPERIENCE
Built data pipelines for billing
`

func newInboxPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.Build(context.Background(), config.Default(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newInboxStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	s, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "inbox.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInbox_DocType(t *testing.T) {
	root := filepath.Join("/srv", "inbox")
	in := NewInbox([]string{root + "/"}, nil, t.TempDir(), WithDefaultDocType("essays"))

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "note.txt"), "essays"},
		{filepath.Join(root, "Resumes", "jane.txt"), "Resumes"},
		{filepath.Join(root, "Resumes", "2024", "jane.txt"), "2024"},
		{filepath.Join(root, "Essays", "river.md"), "Essays"},
	}
	for _, tt := range tests {
		if got := in.DocType(tt.path); got != tt.want {
			t.Errorf("DocType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestInbox_ProcessAndRemove(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	store := newInboxStore(t)
	in := NewInbox([]string{root}, newInboxPipeline(t), outDir, WithStore(store))

	dir := filepath.Join(root, "Resumes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "Jane Smith.txt")
	if err := writeFile(path, inboxResume); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	res, err := in.Process(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != "Jane_Smith.txt" || res.DocType != "Resumes" {
		t.Errorf("unexpected result header: id=%q doc_type=%q", res.ID, res.DocType)
	}
	if len(res.Rows) == 0 || res.Rows[0].Category != "resume-name" || res.Rows[0].Content != "Jane Smith" {
		t.Errorf("unexpected first row: %+v", res.Rows)
	}

	jsonPath := filepath.Join(outDir, "Resumes", "Jane_Smith.json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("result file not written: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Rows) != len(res.Rows) {
		t.Errorf("decoded %d rows, want %d", len(decoded.Rows), len(res.Rows))
	}

	id := fileid.PathID(path)
	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.DocType != "Resumes" || doc.Source != path {
		t.Errorf("unexpected stored document: %+v", doc)
	}
	chunks, err := store.GetChunksByDocumentID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != len(res.Rows) {
		t.Errorf("stored %d chunks, want %d", len(chunks), len(res.Rows))
	}

	in.Remove(ctx, path)
	if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
		t.Errorf("result file should be removed, stat err = %v", err)
	}
	if _, err := store.GetDocument(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
}

func TestInbox_ProcessFreeForm(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	in := NewInbox([]string{root}, newInboxPipeline(t), outDir)

	path := filepath.Join(root, "river.md")
	text := "# Rivers\n\nRivers shape the valleys they cross. Over centuries the water cuts deeper.\n\nCities grew along the banks because trade followed the current."
	if err := writeFile(path, text); err != nil {
		t.Fatal(err)
	}
	res, err := in.Process(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if res.DocType != "essays" {
		t.Errorf("doc type = %q, want essays", res.DocType)
	}
	for _, r := range res.Rows {
		if r.Category != pipeline.CategoryFreeForm {
			t.Errorf("unexpected category %q", r.Category)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "essays", "river.json")); err != nil {
		t.Errorf("result file missing: %v", err)
	}
}

func TestInbox_ProcessUnsupported(t *testing.T) {
	root := t.TempDir()
	in := NewInbox([]string{root}, newInboxPipeline(t), t.TempDir())

	path := filepath.Join(root, "data.bin")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	_, err := in.Process(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "failed to extract") {
		t.Errorf("expected extract error, got %v", err)
	}
}

func TestInbox_WithWatcher(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	in := NewInbox([]string{root}, newInboxPipeline(t), outDir)
	startWatcher(t, []string{root}, in, WithExtensions([]string{".txt"}), WithRecursive(true))

	dir := filepath.Join(root, "Resumes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "cv.txt"), inboxResume); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(outDir, "Resumes", "cv.json")
	waitFor(t, func() bool {
		_, err := os.Stat(want)
		return err == nil
	})
}
