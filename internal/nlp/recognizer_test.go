package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jdkato/prose/v2"

	"github.com/hyperjump/kugiri/internal/headings"
	"github.com/hyperjump/kugiri/internal/models"
)

type stubEntityTagger struct {
	ents  map[string][]prose.Entity
	err   error
	calls int
}

func (s *stubEntityTagger) Entities(text string) ([]prose.Entity, error) {
	s.calls++
	return s.ents[text], s.err
}

func newTestRecognizer(t *testing.T, tagger EntityTagger) *PatternRecognizer {
	t.Helper()
	hm, err := headings.Default()
	if err != nil {
		t.Fatal(err)
	}
	return NewPatternRecognizer(hm, WithEntityTagger(tagger))
}

func TestPatternRecognizer(t *testing.T) {
	r := newTestRecognizer(t, &stubEntityTagger{})
	tests := []struct {
		text string
		want []models.Entity
	}{
		{"Jane Smith", []models.Entity{{Text: "Jane Smith", Label: models.EntityPerson, Score: 0.6}}},
		{"Software Engineer, Acme Corp, Austin, TX", []models.Entity{
			{Text: "Acme Corp", Label: models.EntityOrganization, Score: 0.8},
			{Text: "Austin, TX", Label: models.EntityLocation, Score: 0.7},
		}},
		{"University of Texas at Austin", []models.Entity{
			{Text: "University of Texas", Label: models.EntityOrganization, Score: 0.85},
		}},
		{"Senior Engineer", nil},
		{"Work Experience", nil},
		{"Mary Jane Watson 2020", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := r.Recognize(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Recognize: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatternRecognizer_TaggedEntities(t *testing.T) {
	tagger := &stubEntityTagger{ents: map[string][]prose.Entity{
		"Worked with Ada Lovelace in London": {
			{Text: "Ada Lovelace", Label: "PERSON"},
			{Text: "London", Label: "GPE"},
		},
		"Jane Smith": {{Text: "Jane", Label: "PERSON"}},
		"Acme Corp, Austin, TX": {
			{Text: "Austin", Label: "GPE"},
			{Text: "Acme", Label: "PERSON"},
		},
		"Met the Senior Engineer": {{Text: "Senior Engineer", Label: "PERSON"}},
	}}
	r := newTestRecognizer(t, tagger)
	tests := []struct {
		text string
		want []models.Entity
	}{
		{"Worked with Ada Lovelace in London", []models.Entity{
			{Text: "Ada Lovelace", Label: models.EntityPerson, Score: 0.7},
			{Text: "London", Label: models.EntityLocation, Score: 0.65},
		}},
		{"Jane Smith", []models.Entity{{Text: "Jane Smith", Label: models.EntityPerson, Score: 0.6}}},
		{"Acme Corp, Austin, TX", []models.Entity{
			{Text: "Acme Corp", Label: models.EntityOrganization, Score: 0.8},
			{Text: "Austin, TX", Label: models.EntityLocation, Score: 0.7},
		}},
		{"Met the Senior Engineer", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := r.Recognize(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Recognize: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatternRecognizer_TaggerFailure(t *testing.T) {
	r := newTestRecognizer(t, &stubEntityTagger{err: errors.New("model missing")})
	got, err := r.Recognize(context.Background(), "Jane Smith")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	want := []models.Entity{{Text: "Jane Smith", Label: models.EntityPerson, Score: 0.6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recognize mismatch (-want +got):\n%s", diff)
	}
}

func TestPatternRecognizer_HeadingSkipsTagger(t *testing.T) {
	tagger := &stubEntityTagger{}
	r := newTestRecognizer(t, tagger)
	if _, err := r.Recognize(context.Background(), "EDUCATION"); err != nil {
		t.Fatal(err)
	}
	if tagger.calls != 0 {
		t.Errorf("tagger called %d times for a heading", tagger.calls)
	}
}

func TestPatternRecognizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestRecognizer(t, &stubEntityTagger{})
	if _, err := r.Recognize(ctx, "Jane Smith"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
