// Package features turns raw document text into per-line feature records.
package features

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperjump/kugiri/internal/lexicon"
)

// DefaultGapRatio is the share of the longest line a trailing gap must reach
// to count as visual separation.
const DefaultGapRatio = 0.15

var (
	pageFooter = regexp.MustCompile(`(?i)\bpage\s*\d*\s*(?:of|/)\s*\d+\b`)
	multiSpace = regexp.MustCompile(`\s{2,}`)
)

// ParseIntoLines NFKC-normalizes text and returns its non-blank lines,
// trimmed, with runs of whitespace collapsed and page footers dropped.
func ParseIntoLines(text string) []string {
	text = norm.NFKC.String(text)
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || pageFooter.MatchString(line) {
			continue
		}
		out = append(out, multiSpace.ReplaceAllString(line, " "))
	}
	return out
}

// ContainsBullet reports a bullet glyph outside any word.
func ContainsBullet(text string) bool {
	return lexicon.HasBullet(text)
}

// ContainsContactInfo reports an email, URL, phone number or social handle.
func ContainsContactInfo(text string) bool {
	return lexicon.HasContactInfo(text)
}

// EndsWithConjunction reports whether the last word, ignoring trailing
// periods, is a continuation word.
func EndsWithConjunction(text string) bool {
	return lexicon.IsConjunction(lexicon.LastWord(strings.TrimRight(strings.TrimSpace(text), ".")))
}

// StartsWithConjunction reports whether the first word is a continuation word.
func StartsWithConjunction(text string) bool {
	return lexicon.IsConjunction(lexicon.FirstWord(text))
}

// IsVisuallySeparated reports whether line ends with a trailing gap (up to
// maxLineLength) wider than next's first word and at least ratio of
// maxLineLength. Lengths are in runes.
func IsVisuallySeparated(line, next string, maxLineLength int, ratio float64) bool {
	if maxLineLength <= 0 {
		return false
	}
	gap := maxLineLength - utf8.RuneCountInString(strings.TrimRightFunc(line, unicode.IsSpace))
	first := utf8.RuneCountInString(lexicon.FirstWord(next))
	return gap > first && float64(gap)/float64(maxLineLength) >= ratio
}

// IsAllCaps reports whether text has at least two letters and no lower-case ones.
func IsAllCaps(text string) bool {
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters >= 2
}

// HasColon reports whether text contains a colon.
func HasColon(text string) bool {
	return strings.ContainsRune(text, ':')
}

// MaxLineLength returns the longest line in runes.
func MaxLineLength(lines []string) int {
	longest := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > longest {
			longest = n
		}
	}
	return longest
}
