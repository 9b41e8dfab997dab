// Package lexicon holds the closed word classes and text patterns shared by
// feature extraction and the heuristic language providers.
package lexicon

import (
	"regexp"
	"strings"
	"unicode"
)

var conjunctions = map[string]bool{
	"and": true, "or": true, "but": true, "so": true, "yet": true,
	"because": true, "although": true, "though": true, "while": true, "nor": true,
	"for": true, "with": true, "as": true, "if": true, "when": true,
	"after": true, "before": true, "until": true, "to": true, "from": true,
	"however": true, "moreover": true, "furthermore": true, "therefore": true, "thus": true,
	"meanwhile": true, "additionally": true, "also": true, "besides": true, "then": true,
	"in": true, "on": true,
}

// IsConjunction reports whether word (any case) is a continuation word.
func IsConjunction(word string) bool {
	return conjunctions[strings.ToLower(word)]
}

// Bullet glyphs recognized at word boundaries.
const bulletGlyphs = "•*+-‣▪∙‾·"

// IsBulletGlyph reports whether r is a bullet glyph.
func IsBulletGlyph(r rune) bool {
	return strings.ContainsRune(bulletGlyphs, r)
}

// IsWordRune matches the \w class: letters, digits and underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// HasBullet reports whether text contains a bullet glyph that is neither
// preceded nor followed by a word character, so "hands-on" does not count.
// A run of the same glyph is judged as a unit, which keeps "C++" a word.
func HasBullet(text string) bool {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		if !IsBulletGlyph(r) {
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		before := i > 0 && IsWordRune(runes[i-1])
		after := j < len(runes) && IsWordRune(runes[j])
		if !before && !after {
			return true
		}
		i = j
	}
	return false
}

// Contact patterns. URLs need a scheme, a www prefix or a common top-level
// domain so "Node.js" is not mistaken for a site.
var (
	EmailPattern  = regexp.MustCompile(`(?i)\b[\w.\-]+@[\w.\-]+\.\w{2,4}\b`)
	URLPattern    = regexp.MustCompile(`(?i)\b(?:https?://\S+|www\.\S+|[\w\-]+(?:\.[\w\-]+)*\.(?:com|org|net|io|dev|edu|gov|co|ai|me|app|info|uk|de|us)(?:/\S*)?\b)`)
	PhonePattern  = regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?){2}\d{4}\b|\b\d{3}[-.]\d{4}\b`)
	SocialPattern = regexp.MustCompile(`(?i)\b(?:linkedin|github|twitter|gitlab)\.com/\S+|@\w{2,}`)
)

// HasContactInfo reports whether text contains an email address, URL, phone
// number or social handle.
func HasContactInfo(text string) bool {
	return EmailPattern.MatchString(text) ||
		URLPattern.MatchString(text) ||
		PhonePattern.MatchString(text) ||
		SocialPattern.MatchString(text)
}

var (
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
	fullDatePattern = regexp.MustCompile(`^\d{1,2}[-/]\d{1,2}[-/]\d{2,4}$`)
)

// IsDateToken reports whether tok is a bare year or a numeric date.
func IsDateToken(tok string) bool {
	return yearPattern.MatchString(tok) || fullDatePattern.MatchString(tok)
}

// FirstWord returns the first whitespace-separated word of s.
func FirstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// LastWord returns the last whitespace-separated word of s.
func LastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
