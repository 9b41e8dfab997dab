package nlp

import (
	"context"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/hyperjump/kugiri/internal/headings"
	"github.com/hyperjump/kugiri/internal/models"
)

var (
	orgSuffixPattern = regexp.MustCompile(`\b(?:[A-Z][\w&'\-]*\s+){0,4}(?:Inc|LLC|Ltd|Corp|Corporation|Company|GmbH|Group|Technologies|Labs|Solutions|Systems|Bank|University|College|Institute|Academy)\b\.?`)
	orgOfPattern     = regexp.MustCompile(`\b(?:[A-Z][\w\-]*\s+){0,3}(?:University|Institute|College|School|Academy) of(?:\s+(?:the\s+)?[A-Z][\w\-]*){1,3}`)
	locationPattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)?,\s[A-Z]{2}\b`)
	personWord       = regexp.MustCompile(`^(?:[A-Z][a-z]+(?:[\-'][A-Z][a-z]+)?|[A-Z]\.)$`)
)

var nonNameWords = wordSet("experience", "skills", "education", "summary", "profile", "projects",
	"engineer", "developer", "manager", "senior", "junior", "lead", "university", "college",
	"work", "professional", "technical", "contact", "references", "languages", "interests",
	"present", "remote", "team", "objective", "certifications", "awards")

// EntityTagger returns the PERSON and GPE spans of text.
type EntityTagger interface {
	Entities(text string) ([]prose.Entity, error)
}

// PatternRecognizer finds organizations by suffix, locations written as
// "City, ST", and short Title-Case lines that look like a person's name.
// People and places the prose entity model finds are added after those.
type PatternRecognizer struct {
	headings *headings.Map
	tagger   EntityTagger
}

// RecognizerOption configures a PatternRecognizer.
type RecognizerOption func(*PatternRecognizer)

// WithEntityTagger replaces the prose entity model.
func WithEntityTagger(t EntityTagger) RecognizerOption {
	return func(r *PatternRecognizer) {
		if t != nil {
			r.tagger = t
		}
	}
}

// NewPatternRecognizer returns a recognizer. Lines that resolve in hm are
// never treated as names.
func NewPatternRecognizer(hm *headings.Map, opts ...RecognizerOption) *PatternRecognizer {
	r := &PatternRecognizer{headings: hm, tagger: DefaultProseModel()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recognize returns entities in order of discovery.
func (r *PatternRecognizer) Recognize(ctx context.Context, text string) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var out []models.Entity
	seen := make(map[string]bool)
	add := func(span, label string, score float64) {
		span = strings.TrimSpace(span)
		if span == "" || seen[span] {
			return
		}
		for _, e := range out {
			if strings.Contains(e.Text, span) {
				return
			}
		}
		seen[span] = true
		out = append(out, models.Entity{Text: span, Label: label, Score: score})
	}
	for _, m := range orgOfPattern.FindAllString(text, -1) {
		add(m, models.EntityOrganization, 0.85)
	}
	for _, m := range orgSuffixPattern.FindAllString(text, -1) {
		add(m, models.EntityOrganization, 0.8)
	}
	for _, m := range locationPattern.FindAllString(text, -1) {
		add(m, models.EntityLocation, 0.7)
	}
	if len(out) == 0 && r.looksLikeName(text) {
		add(text, models.EntityPerson, 0.6)
	}
	if r.isHeading(text) {
		return out, nil
	}
	// A tagger failure keeps the pattern matches.
	ents, err := r.tagger.Entities(text)
	if err != nil {
		return out, nil
	}
	for _, e := range ents {
		switch e.Label {
		case "PERSON":
			if nameWords(e.Text) {
				add(e.Text, models.EntityPerson, 0.7)
			}
		case "GPE":
			add(e.Text, models.EntityLocation, 0.65)
		}
	}
	return out, nil
}

func (r *PatternRecognizer) isHeading(text string) bool {
	if r.headings == nil {
		return false
	}
	_, ok := r.headings.Resolve(text)
	return ok
}

func (r *PatternRecognizer) looksLikeName(text string) bool {
	if r.isHeading(text) {
		return false
	}
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 4 {
		return false
	}
	return nameWords(text)
}

// nameWords reports whether every word of span is capitalized like a name
// and none is a job or section word.
func nameWords(span string) bool {
	fields := strings.Fields(span)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !personWord.MatchString(f) || nonNameWords[strings.ToLower(f)] {
			return false
		}
	}
	return true
}
