package nlp

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/kugiri/internal/headings"
)

func TestKeywordClassifier(t *testing.T) {
	hm, err := headings.Default()
	if err != nil {
		t.Fatal(err)
	}
	c := NewKeywordClassifier(hm)
	labels := []string{LabelJobTitle, LabelCompanyLine, LabelContactInfo, LabelEducation, LabelTechnicalSkills}

	tests := []struct {
		text string
		want string
	}{
		{"jane@x.com | 555-1234", LabelContactInfo},
		{"Education", LabelEducation},
		{"MIT, BS Computer Science, 2020", LabelEducation},
		{"Senior Software Engineer", LabelJobTitle},
		{"Acme Corp 2019 - Present", LabelCompanyLine},
		{"Languages: Go, Python, Rust", LabelTechnicalSkills},
		{"the quick brown fox", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.text, labels)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if top := Top(got).Label; top != tt.want {
				t.Errorf("top label = %q, want %q (all %+v)", top, tt.want, got)
			}
		})
	}
}

func TestKeywordClassifier_Normalized(t *testing.T) {
	c := NewKeywordClassifier(nil)
	got, err := c.Classify(context.Background(), "Senior Software Engineer at Acme Inc", []string{LabelJobTitle, LabelCompanyLine})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	var sum float64
	for i, r := range got {
		sum += r.Score
		if i > 0 && r.Score > got[i-1].Score {
			t.Errorf("results not descending: %+v", got)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("scores sum to %f", sum)
	}
	if got[0].Label != LabelJobTitle {
		t.Errorf("top = %q", got[0].Label)
	}
}

func TestKeywordClassifier_NoLabels(t *testing.T) {
	got, err := NewKeywordClassifier(nil).Classify(context.Background(), "jane@x.com", nil)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}
