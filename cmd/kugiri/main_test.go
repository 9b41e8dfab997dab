package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kugiri/internal/batch"
)

const resumeText = `Jane Smith
jane.smith@example.com | (555) 123-4567
EDUCATION
B.S. in Computer Science, Example University
`

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after file are moved first",
			args:     []string{"cv.pdf", "--output", "json"},
			expected: []string{"--output", "json", "cv.pdf"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"--output", "json", "cv.pdf"},
			expected: []string{"--output", "json", "cv.pdf"},
		},
		{
			name:     "positional only returns unchanged",
			args:     []string{"cv.pdf"},
			expected: []string{"cv.pdf"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"a", "b", "--debug"},
			expected: []string{"--debug", "a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// writeConfig writes a config that keeps every path under dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf("storage:\n  database_path: %s\nbatch:\n  output_dir: %s\n",
		filepath.Join(dir, "kugiri.db"), filepath.Join(dir, "out"))
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir)

	cfg, loaded, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != path {
		t.Errorf("loaded path = %q, want %q", loaded, path)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "kugiri.db") {
		t.Errorf("database path = %q", cfg.Storage.DatabasePath)
	}
	if cfg.Batch.Workers == 0 {
		t.Error("defaults should be applied")
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("an explicit missing config should fail")
	}
}

func TestRun_VersionAndHelp(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), []string{"version"}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "kugiri version ") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err := run(context.Background(), []string{"help"}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "kugiri resume [flags] <file>") {
		t.Errorf("help output missing commands:\n%s", buf.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := [][]string{
		nil,
		{"frobnicate"},
		{"resume"},
		{"chunk", "a.txt", "b.txt"},
	}
	for _, args := range tests {
		var buf bytes.Buffer
		err := run(context.Background(), args, &buf)
		if !errors.Is(err, errUsage) {
			t.Errorf("run(%v) = %v, want usage error", args, err)
		}
	}
}

func TestRun_ResumeJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	file := filepath.Join(dir, "Jane Smith.txt")
	if err := os.WriteFile(file, []byte(resumeText), 0600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := run(context.Background(), []string{"resume", file, "--config", cfgPath, "--output", "json"}, &buf); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Resume struct {
			Name string `json:"name"`
		} `json:"resume"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Resume.Name != "Jane Smith" {
		t.Errorf("name = %q", decoded.Resume.Name)
	}
}

func TestRun_BadOutputFormat(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), []string{"status", "--config", writeConfig(t, dir), "--output", "yaml"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("got %v", err)
	}
}

func TestRun_ManifestBatchStatus(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	base := filepath.Join(dir, "docs")
	if err := os.MkdirAll(filepath.Join(base, "Resumes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(base, "Essays"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "Resumes", "Jane Smith.txt"), []byte(resumeText), 0600); err != nil {
		t.Fatal(err)
	}
	essay := "Rivers shape the valleys they cross. Cities grew along the banks because trade followed the current."
	if err := os.WriteFile(filepath.Join(base, "Essays", "river.txt"), []byte(essay), 0600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	manifest := filepath.Join(dir, "manifest.csv")
	var buf bytes.Buffer
	if err := run(ctx, []string{"manifest", "--config", cfgPath, "--out", manifest, base}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(2 documents)") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err := run(ctx, []string{"batch", "--config", cfgPath, "--persist", "--output", "json", manifest}, &buf); err != nil {
		t.Fatal(err)
	}
	var summary batch.Summary
	if err := json.Unmarshal(buf.Bytes(), &summary); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, buf.String())
	}
	if summary.Documents != 2 || summary.Resumes != 1 || summary.Essays != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	for _, name := range []string{batch.CombinedCSV, batch.ResumesCSV, batch.EssaysCSV} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	buf.Reset()
	if err := run(ctx, []string{"status", "--config", cfgPath, "--output", "json"}, &buf); err != nil {
		t.Fatal(err)
	}
	var status struct {
		Documents int64 `json:"documents"`
		Chunks    int64 `json:"chunks"`
	}
	if err := json.Unmarshal(buf.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Documents != 2 || status.Chunks != int64(summary.Rows) {
		t.Errorf("status = %+v, want 2 documents and %d chunks", status, summary.Rows)
	}
}
