package merge

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperjump/kugiri/internal/features"
	"github.com/hyperjump/kugiri/internal/models"
)

type stubValidator func(text string) bool

func (f stubValidator) Valid(_ context.Context, text string) bool { return f(text) }

func always(v bool) stubValidator { return func(string) bool { return v } }

func plain(texts ...string) []models.Line {
	out := make([]models.Line, len(texts))
	for i, t := range texts {
		out[i] = models.Line{
			Text:                  t,
			Index:                 i,
			ContainsBullet:        features.ContainsBullet(t),
			EndsWithConjunction:   features.EndsWithConjunction(t),
			StartsWithConjunction: features.StartsWithConjunction(t),
		}
	}
	return out
}

func TestMerge_ConjunctionJoin(t *testing.T) {
	lines := plain("Managed a team and", "delivered results.")
	var checked []string
	v := stubValidator(func(text string) bool {
		checked = append(checked, text)
		return text == "Managed a team and delivered results."
	})
	got := NewEngine(v).Merge(context.Background(), lines)
	want := []models.MergedLine{{Text: "Managed a team and delivered results.", Sources: []int{0, 1}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
	if len(checked) != 1 {
		t.Errorf("validator calls = %v", checked)
	}
}

func TestMerge_BulletStops(t *testing.T) {
	lines := plain("Skills: Python, Go", "• Leadership")
	got := NewEngine(always(true)).Merge(context.Background(), lines)
	want := []string{"Skills: Python, Go", "• Leadership"}
	if diff := cmp.Diff(want, Texts(got)); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_Backtracking(t *testing.T) {
	lines := plain("Built the billing", "service in Go", "Acme Corp", "Remote")
	// anything containing Acme is rejected
	v := stubValidator(func(text string) bool { return !strings.Contains(text, "Acme") })
	got := NewEngine(v).Merge(context.Background(), lines)
	want := []models.MergedLine{
		{Text: "Built the billing service in Go", Sources: []int{0, 1}},
		{Text: "Acme Corp", Sources: []int{2}},
		{Text: "Remote", Sources: []int{3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_AlwaysInvalidTerminates(t *testing.T) {
	lines := plain("a", "b", "c", "d")
	got := NewEngine(always(false)).Merge(context.Background(), lines)
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, Texts(got)); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := NewEngine(nil).Merge(context.Background(), nil); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestDecide(t *testing.T) {
	org := []models.Entity{{Text: "Acme", Label: models.EntityOrganization}}
	tests := []struct {
		name     string
		prev     models.Line
		next     models.Line
		chunkLen int
		want     Rule
	}{
		{"bullet beats conjunction", models.Line{EndsWithConjunction: true}, models.Line{ContainsBullet: true}, 1, RuleBullet},
		{"conjunction beats header", models.Line{EndsWithConjunction: true}, models.Line{SectionHeader: "EDUCATION"}, 1, RuleConjunction},
		{"starts with conjunction", models.Line{}, models.Line{StartsWithConjunction: true}, 3, RuleConjunction},
		{"header", models.Line{SectionHeader: "EDUCATION"}, models.Line{}, 2, RuleSectionHeader},
		{"separated first line", models.Line{IsVisuallySeparated: true}, models.Line{}, 1, RuleSeparatedFirst},
		{"separated later line merges", models.Line{IsVisuallySeparated: true}, models.Line{}, 2, RuleMerge},
		{"contact on first line", models.Line{}, models.Line{ContainsContactInfo: true}, 1, RuleContactFirst},
		{"contact later merges", models.Line{ContainsContactInfo: true}, models.Line{}, 2, RuleMerge},
		{"company with org", models.Line{}, models.Line{Classification: models.Classification{Label: "COMPANY LINE"}, Entities: org}, 2, RuleOrganization},
		{"company without org", models.Line{}, models.Line{Classification: models.Classification{Label: "COMPANY LINE"}}, 2, RuleMerge},
		{"both separated", models.Line{IsVisuallySeparated: true}, models.Line{IsVisuallySeparated: true}, 2, RuleBothSeparated},
		{"plain", models.Line{}, models.Line{}, 1, RuleMerge},
	}
	e := NewEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Decide(tt.prev, tt.next, tt.chunkLen); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithStopLabels(t *testing.T) {
	org := []models.Entity{{Text: "MIT", Label: models.EntityOrganization}}
	next := models.Line{Classification: models.Classification{Label: "EDUCATION"}, Entities: org}
	if got := NewEngine(nil, WithStopLabels([]string{"COMPANY LINE"})).Decide(models.Line{}, next, 2); got != RuleMerge {
		t.Errorf("EDUCATION should no longer stop, got %v", got)
	}
}

// Every line must appear exactly once, in order, whatever the flags and
// validator answers are.
func TestMerge_CoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		lines := make([]models.Line, n)
		for i := range lines {
			lines[i] = models.Line{
				Text:                  strings.Repeat("w", i+1),
				Index:                 i,
				ContainsBullet:        rng.Intn(5) == 0,
				EndsWithConjunction:   rng.Intn(4) == 0,
				StartsWithConjunction: rng.Intn(6) == 0,
				IsVisuallySeparated:   rng.Intn(3) == 0,
				ContainsContactInfo:   rng.Intn(8) == 0,
			}
		}
		answers := rng.Int63()
		v := stubValidator(func(text string) bool { return (int64(len(text))^answers)%3 != 0 })

		got := NewEngine(v).Merge(context.Background(), lines)
		var seen []int
		for _, m := range got {
			if len(m.Sources) == 0 {
				t.Fatalf("round %d: empty merged line", round)
			}
			seen = append(seen, m.Sources...)
		}
		if len(seen) != n {
			t.Fatalf("round %d: covered %d of %d lines", round, len(seen), n)
		}
		for i, idx := range seen {
			if idx != i {
				t.Fatalf("round %d: order broken at %d: %v", round, i, seen)
			}
		}
	}
}

func TestRuleString(t *testing.T) {
	if RuleBullet.String() != "bullet" || Rule(99).String() != "rule(99)" {
		t.Error("unexpected rule names")
	}
	if RuleMerge.Stops() || RuleConjunction.Stops() || !RuleOrganization.Stops() {
		t.Error("unexpected Stops")
	}
}
