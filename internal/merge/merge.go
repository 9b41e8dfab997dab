// Package merge joins physical lines into logical lines with an ordered set
// of stop rules and a grammaticality check that backs off over-eager merges.
package merge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/nlp"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// DefaultStopLabels are classifier labels that, together with an
// organization entity, mark a line that stands on its own.
var DefaultStopLabels = []string{"COMPANY LINE", "EDUCATION"}

// Rule identifies the rule that decided a merge step.
type Rule int

const (
	RuleMerge Rule = iota
	RuleBullet
	RuleConjunction
	RuleSectionHeader
	RuleSeparatedFirst
	RuleContactFirst
	RuleOrganization
	RuleBothSeparated
)

var ruleNames = map[Rule]string{
	RuleMerge:          "merge",
	RuleBullet:         "bullet",
	RuleConjunction:    "conjunction",
	RuleSectionHeader:  "section_header",
	RuleSeparatedFirst: "separated_first",
	RuleContactFirst:   "contact_first",
	RuleOrganization:   "organization",
	RuleBothSeparated:  "both_separated",
}

func (r Rule) String() string {
	if s, ok := ruleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Stops reports whether the rule ends the current chunk.
func (r Rule) Stops() bool {
	return r != RuleMerge && r != RuleConjunction
}

// Engine merges feature records. It holds no per-document state and is safe
// for concurrent use when its validator is.
type Engine struct {
	validator  nlp.GrammarValidator
	stopLabels map[string]bool
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStopLabels replaces DefaultStopLabels.
func WithStopLabels(labels []string) Option {
	return func(e *Engine) {
		if len(labels) == 0 {
			return
		}
		e.stopLabels = make(map[string]bool, len(labels))
		for _, l := range labels {
			e.stopLabels[l] = true
		}
	}
}

// NewEngine returns an Engine. A nil validator accepts every merge.
func NewEngine(validator nlp.GrammarValidator, opts ...Option) *Engine {
	e := &Engine{validator: validator}
	WithStopLabels(DefaultStopLabels)(e)
	for _, o := range opts {
		o(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Decide applies the rules in priority order to the last line of the chunk
// (prev) and the candidate line (next). chunkLen is the chunk size so far.
func (e *Engine) Decide(prev, next models.Line, chunkLen int) Rule {
	switch {
	case next.ContainsBullet:
		return RuleBullet
	case prev.EndsWithConjunction || next.StartsWithConjunction:
		return RuleConjunction
	case prev.SectionHeader != "" || next.SectionHeader != "":
		return RuleSectionHeader
	case chunkLen == 1 && prev.IsVisuallySeparated:
		return RuleSeparatedFirst
	case chunkLen == 1 && (prev.ContainsContactInfo || next.ContainsContactInfo):
		return RuleContactFirst
	case e.standalone(prev) || e.standalone(next):
		return RuleOrganization
	case prev.IsVisuallySeparated && next.IsVisuallySeparated:
		return RuleBothSeparated
	}
	return RuleMerge
}

func (e *Engine) standalone(l models.Line) bool {
	return e.stopLabels[l.Classification.Label] && l.HasEntity(models.EntityOrganization)
}

// Merge groups lines into MergedLines. Every input line lands in exactly one
// output, in order. Sources carry each line's Index.
func (e *Engine) Merge(ctx context.Context, lines []models.Line) []models.MergedLine {
	var out []models.MergedLine
	n := len(lines)
	i := 0
	for i < n {
		chunk := []int{i}
		j := i + 1
		for j < n {
			rule := e.Decide(lines[j-1], lines[j], len(chunk))
			if rule.Stops() {
				e.logger.Debug("merge stopped", zap.Int("line", j), zap.Stringer("rule", rule))
				break
			}
			chunk = append(chunk, j)
			j++
		}

		for len(chunk) > 1 && !e.valid(ctx, lines, chunk) {
			chunk = chunk[:len(chunk)-1]
			j--
			e.logger.Debug("merge rejected, backing off", zap.Int("line", j), zap.Int("chunk_lines", len(chunk)))
		}
		if len(chunk) == 0 {
			panic("merge: chunk shrank to zero lines")
		}

		sources := make([]int, len(chunk))
		for k, idx := range chunk {
			sources[k] = lines[idx].Index
		}
		out = append(out, models.MergedLine{Text: joinText(lines, chunk), Sources: sources})
		i = j
	}
	return out
}

func (e *Engine) valid(ctx context.Context, lines []models.Line, chunk []int) bool {
	if e.validator == nil {
		return true
	}
	return e.validator.Valid(ctx, joinText(lines, chunk))
}

func joinText(lines []models.Line, idx []int) string {
	parts := make([]string, len(idx))
	for k, i := range idx {
		parts[k] = strings.TrimSpace(lines[i].Text)
	}
	return strings.Join(parts, " ")
}

// Texts returns the text of each merged line.
func Texts(merged []models.MergedLine) []string {
	out := make([]string, len(merged))
	for i, m := range merged {
		out[i] = m.Text
	}
	return out
}
