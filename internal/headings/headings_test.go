package headings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	tests := []struct {
		line string
		want string
	}{
		{"TECHNICAL SKILLS", "TECHNICAL SKILLS"},
		{"  Skills  ", "TECHNICAL SKILLS"},
		{"Work Experience", "PROFESSIONAL EXPERIENCE"},
		{"education", "EDUCATION"},
		{"Projects", "SELECTED TECHNICAL PROJECTS"},
		{"Contact", ""},
		{"Senior Engineer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := m.SectionHeader(tt.line); got != tt.want {
				t.Errorf("SectionHeader(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestResolveSubLabel(t *testing.T) {
	m, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	e, ok := m.Resolve("employer")
	if !ok {
		t.Fatal("expected employer to resolve")
	}
	want := Entry{CanonicalLabel: "COMPANY LINE", LabelType: TypeSubLabel, BelongsTo: "PROFESSIONAL EXPERIENCE"}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
	if got := m.SectionHeader("employer"); got != "" {
		t.Errorf("SectionHeader(employer) = %q, want \"\" for a sub label", got)
	}
}

func TestNewFirstEntryWins(t *testing.T) {
	m, err := New(Dictionary{Labels: []Label{
		{CanonicalLabel: "EDUCATION", Synonyms: []string{"training"}},
		{CanonicalLabel: "CERTIFICATIONS", Synonyms: []string{"Training", "certs"}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.SectionHeader("training"); got != "EDUCATION" {
		t.Errorf("training = %q, want EDUCATION", got)
	}
	if got := m.SectionHeader("certifications"); got != "CERTIFICATIONS" {
		t.Errorf("canonical label should map to itself, got %q", got)
	}
	want := map[string][]string{
		"EDUCATION":      {"education", "training"},
		"CERTIFICATIONS": {"certifications", "certs"},
	}
	if diff := cmp.Diff(want, m.SynonymsByLabel()); diff != "" {
		t.Errorf("SynonymsByLabel mismatch (-want +got):\n%s", diff)
	}
	if got := m.CanonicalLabels(""); !cmp.Equal(got, []string{"EDUCATION", "CERTIFICATIONS"}) {
		t.Errorf("CanonicalLabels = %v", got)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(Dictionary{}); !errors.Is(err, ErrEmptyDictionary) {
		t.Errorf("empty dictionary: got %v", err)
	}
	if _, err := New(Dictionary{Labels: []Label{{Synonyms: []string{"x"}}}}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("missing canonical label: got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	data := `labels:
  - label_type: SECTION_HEADING
    canonical_label: PUBLICATIONS
    synonyms: [papers, articles]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.SectionHeader("Papers"); got != "PUBLICATIONS" {
		t.Errorf("got %q", got)
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
