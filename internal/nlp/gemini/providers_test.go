package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperjump/kugiri/internal/models"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func TestClassifier(t *testing.T) {
	gen := &stubGenerator{response: "```json\n" + `{"labels":[{"label":"job title","score":0.2},{"label":"CONTACT INFO","score":"0.7"},{"label":"UNKNOWN","score":0.1}]}` + "\n```"}
	c := NewClassifier(gen)

	got, err := c.Classify(context.Background(), "jane@x.com", []string{"JOB TITLE", "CONTACT INFO"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []models.Classification{
		{Label: "CONTACT INFO", Score: 0.7},
		{Label: "JOB TITLE", Score: 0.2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify mismatch (-want +got):\n%s", diff)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], `"jane@x.com"`) || !strings.Contains(gen.prompts[0], `["JOB TITLE","CONTACT INFO"]`) {
		t.Errorf("unexpected prompt: %v", gen.prompts)
	}
}

func TestClassifier_Errors(t *testing.T) {
	c := NewClassifier(&stubGenerator{err: errors.New("quota")})
	if _, err := c.Classify(context.Background(), "x", []string{"A"}); err == nil {
		t.Error("expected generator error")
	}
	c = NewClassifier(&stubGenerator{response: "not json"})
	if _, err := c.Classify(context.Background(), "x", []string{"A"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestRecognizer(t *testing.T) {
	gen := &stubGenerator{response: `{"entities":[{"text":"Jane Smith","label":"PER","score":0.98},{"text":"Acme","label":"ORG"},{"text":"","label":"LOC"}]}`}
	got, err := NewRecognizer(gen).Recognize(context.Background(), "Jane Smith at Acme")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	want := []models.Entity{
		{Text: "Jane Smith", Label: models.EntityPerson, Score: 0.98},
		{Text: "Acme", Label: models.EntityOrganization, Score: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
	}
}

func TestValidator(t *testing.T) {
	gen := &stubGenerator{response: `{"grammatical": "yes"}`}
	v := NewValidator(gen)
	if !v.Valid(context.Background(), "Managed a team and delivered results.") {
		t.Error("expected valid")
	}
	if !v.Valid(context.Background(), "Managed a team and delivered results.") {
		t.Error("expected memoized valid")
	}
	if len(gen.prompts) != 1 {
		t.Errorf("expected one generator call, got %d", len(gen.prompts))
	}

	if NewValidator(&stubGenerator{err: errors.New("timeout")}).Valid(context.Background(), "text") {
		t.Error("generator failure must be false")
	}
	if NewValidator(&stubGenerator{response: "{"}).Valid(context.Background(), "text") {
		t.Error("parse failure must be false")
	}
	if NewValidator(&stubGenerator{}).Valid(context.Background(), "  ") {
		t.Error("empty text must be false")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		" {\"a\":1} ":             `{"a":1}`,
	}
	for in, want := range tests {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewGenerator_RequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "  ", ""); err == nil {
		t.Error("expected error for empty api key")
	}
}
