package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/kugiri/internal/headings"
	"github.com/hyperjump/kugiri/internal/lexicon"
	"github.com/hyperjump/kugiri/internal/models"
)

// Labels the keyword classifier has cues for.
const (
	LabelContactInfo            = "CONTACT INFO"
	LabelJobTitle               = "JOB TITLE"
	LabelCompanyLine            = "COMPANY LINE"
	LabelDateRange              = "DATE RANGE"
	LabelEducation              = "EDUCATION"
	LabelProfessionalExperience = "PROFESSIONAL EXPERIENCE"
	LabelTechnicalSkills        = "TECHNICAL SKILLS"
	LabelProjects               = "SELECTED TECHNICAL PROJECTS"
)

var (
	dateRangePattern = regexp.MustCompile(`(?i)\b(?:19|20)\d{2}\b.{0,20}(?:present|current|now|\b(?:19|20)\d{2}\b)`)
	titleWords       = wordSet("engineer", "developer", "manager", "director", "analyst", "consultant",
		"designer", "scientist", "architect", "lead", "intern", "specialist", "administrator",
		"officer", "coordinator", "programmer", "head", "vp", "cto", "ceo", "founder")
	companyWords = wordSet("inc", "llc", "ltd", "corp", "corporation", "company", "gmbh", "technologies",
		"solutions", "group", "labs", "systems", "bank", "agency", "studio", "partners")
	educationWords = wordSet("university", "college", "institute", "school", "academy", "bachelor",
		"master", "masters", "degree", "diploma", "gpa", "bs", "ba", "bsc", "ms", "msc", "mba", "phd",
		"b.s", "m.s", "b.a", "m.a", "coursework")
	actionVerbs = wordSet("led", "managed", "built", "designed", "developed", "implemented", "created",
		"delivered", "owned", "launched", "improved", "reduced", "increased", "migrated", "mentored",
		"architected", "maintained", "automated", "drove", "shipped")
	projectWords = wordSet("project", "projects", "hackathon", "open-source", "side-project", "prototype")
	wordSplit    = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}.\-]*`)
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func lowerWords(text string) []string {
	raw := wordSplit.FindAllString(text, -1)
	out := make([]string, len(raw))
	for i, w := range raw {
		out[i] = strings.TrimRight(strings.ToLower(w), ".")
	}
	return out
}

func countIn(words []string, set map[string]bool) int {
	n := 0
	for _, w := range words {
		if set[w] {
			n++
		}
	}
	return n
}

type cue func(text string, words []string) float64

var cues = map[string]cue{
	LabelContactInfo: func(text string, _ []string) float64 {
		if lexicon.HasContactInfo(text) {
			return 3
		}
		return 0
	},
	LabelJobTitle: func(_ string, words []string) float64 {
		n := countIn(words, titleWords)
		if n == 0 {
			return 0
		}
		score := 1.5
		if len(words) <= 6 {
			score++
		}
		return score
	},
	LabelCompanyLine: func(text string, words []string) float64 {
		score := 1.5 * float64(countIn(words, companyWords))
		if score > 0 && dateRangePattern.MatchString(text) {
			score++
		}
		return score
	},
	LabelDateRange: func(text string, words []string) float64 {
		if !dateRangePattern.MatchString(text) {
			return 0
		}
		if len(words) <= 5 {
			return 2
		}
		return 1
	},
	LabelEducation: func(_ string, words []string) float64 {
		return 1.5 * float64(countIn(words, educationWords))
	},
	LabelProfessionalExperience: func(_ string, words []string) float64 {
		if len(words) > 0 && actionVerbs[words[0]] {
			return 1.5
		}
		return 0.5 * float64(countIn(words, actionVerbs))
	},
	LabelTechnicalSkills: func(text string, _ []string) float64 {
		commas := strings.Count(text, ",")
		switch {
		case commas >= 2 && strings.Contains(text, ":"):
			return 2.5
		case commas >= 3:
			return 1.5
		}
		return 0
	},
	LabelProjects: func(_ string, words []string) float64 {
		return float64(countIn(words, projectWords))
	},
}

// KeywordClassifier scores candidate labels from lexical cues. Scores are
// normalized to sum to 1. Text with no cue yields no classification.
type KeywordClassifier struct {
	headings *headings.Map
}

// NewKeywordClassifier returns a classifier. A non-nil heading map makes
// exact heading lines score strongly for their canonical label.
func NewKeywordClassifier(hm *headings.Map) *KeywordClassifier {
	return &KeywordClassifier{headings: hm}
}

// Classify ranks labels. Ties keep candidate order.
func (c *KeywordClassifier) Classify(ctx context.Context, text string, labels []string) ([]models.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" || len(labels) == 0 {
		return nil, nil
	}
	words := lowerWords(text)
	var heading string
	if c.headings != nil {
		if e, ok := c.headings.Resolve(text); ok {
			heading = e.CanonicalLabel
		}
	}

	results := make([]models.Classification, 0, len(labels))
	var total float64
	for _, label := range labels {
		var score float64
		if fn, ok := cues[strings.ToUpper(label)]; ok {
			score = fn(text, words)
		}
		if heading != "" && strings.EqualFold(heading, label) {
			score += 5
		}
		if score <= 0 {
			continue
		}
		total += score
		results = append(results, models.Classification{Label: label, Score: score})
	}
	if total == 0 {
		return nil, nil
	}
	for i := range results {
		results[i].Score /= total
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}
