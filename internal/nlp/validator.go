package nlp

import (
	"context"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/hyperjump/kugiri/internal/lexicon"
)

// DefaultSuspectRun is the length of a trailing noun run that marks a merge
// of unrelated lines.
const DefaultSuspectRun = 6

// PartOfSpeechTagger tags the tokens of text with Penn Treebank tags.
type PartOfSpeechTagger interface {
	Tag(text string) ([]prose.Token, error)
}

type posTag int

const (
	tagOther posTag = iota
	tagNoun
	tagVerb
	tagAdj
	tagNum
	tagIgnored
)

var (
	tokenPattern  = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’_/@+#.\-]*[\p{L}\p{N}+#]|[\p{L}\p{N}]|[^\s\p{L}\p{N}]`)
	ignoredTokens = wordSet("-", "–", "—", "(", ")", "[", "]", "{", "}")
)

// category folds a Penn Treebank tag into the classes the run scan uses.
func category(tok prose.Token) posTag {
	if ignoredTokens[tok.Text] {
		return tagIgnored
	}
	if r := []rune(tok.Text); len(r) == 1 && lexicon.IsBulletGlyph(r[0]) {
		return tagIgnored
	}
	if tok.Text == "," || tok.Text == "." {
		return tagOther
	}
	switch {
	case strings.HasPrefix(tok.Tag, "NN"):
		return tagNoun
	case strings.HasPrefix(tok.Tag, "VB"):
		return tagVerb
	case strings.HasPrefix(tok.Tag, "JJ"):
		return tagAdj
	case tok.Tag == "CD":
		return tagNum
	}
	return tagOther
}

// HeuristicValidator rejects merged text that contains addresses, a bullet
// after the first token, or a trailing run of noun-like tokens.
type HeuristicValidator struct {
	suspectRun int
	tagger     PartOfSpeechTagger
}

// ValidatorOption configures a HeuristicValidator.
type ValidatorOption func(*HeuristicValidator)

// WithTagger replaces the prose tagger.
func WithTagger(t PartOfSpeechTagger) ValidatorOption {
	return func(v *HeuristicValidator) {
		if t != nil {
			v.tagger = t
		}
	}
}

// NewHeuristicValidator returns a validator. A run <= 0 uses DefaultSuspectRun.
func NewHeuristicValidator(suspectRun int, opts ...ValidatorOption) *HeuristicValidator {
	if suspectRun <= 0 {
		suspectRun = DefaultSuspectRun
	}
	v := &HeuristicValidator{suspectRun: suspectRun, tagger: DefaultProseModel()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Valid reports whether text passes every check. A tagger failure is false.
func (v *HeuristicValidator) Valid(ctx context.Context, text string) bool {
	if ctx.Err() != nil {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if lexicon.EmailPattern.MatchString(text) || lexicon.URLPattern.MatchString(text) {
		return false
	}
	words := tokenPattern.FindAllString(text, -1)
	if len(words) == 0 {
		return false
	}
	for _, w := range words[1:] {
		if r := []rune(w); len(r) == 1 && lexicon.IsBulletGlyph(r[0]) && r[0] != '-' {
			return false
		}
	}
	tokens, err := v.tagger.Tag(text)
	if err != nil || len(tokens) == 0 {
		return false
	}
	return suspectRunOK(tokens, v.suspectRun)
}

// suspectRunOK scans tokens backwards and fails once threshold noun-like
// tokens accumulate without a separator. Verbs step the count back, dates
// count as nouns and any other token resets it.
func suspectRunOK(tokens []prose.Token, threshold int) bool {
	count := 0
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		switch category(tok) {
		case tagIgnored, tagAdj:
			continue
		case tagVerb:
			count--
			continue
		case tagNum:
			if !lexicon.IsDateToken(tok.Text) {
				count = 0
				continue
			}
			count++
		case tagNoun:
			count++
		default:
			count = 0
			continue
		}
		if count >= threshold {
			return false
		}
	}
	return true
}
