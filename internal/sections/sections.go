// Package sections splits re-featurized résumé lines into a name, a contact
// block, one body per canonical heading and a remainder.
package sections

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// DefaultContactLabel is the classifier label that marks contact lines.
const DefaultContactLabel = "CONTACT INFO"

// Target binds a canonical heading to its output key.
type Target struct {
	Label string `yaml:"label" json:"label"`
	Key   string `yaml:"key" json:"key"`
}

// DefaultTargets lists the extracted sections in extraction order.
var DefaultTargets = []Target{
	{Label: "TECHNICAL SKILLS", Key: "technical_skills"},
	{Label: "PROFESSIONAL EXPERIENCE", Key: "professional_experience"},
	{Label: "EDUCATION", Key: "education"},
	{Label: "SELECTED TECHNICAL PROJECTS", Key: "technical_projects"},
	{Label: "ADDITIONAL INFORMATION & PROFESSIONAL DEVELOPMENT", Key: "additional_information"},
}

// SkillsKey is the section key whose body is sub-chunked into SkillGroups.
const SkillsKey = "technical_skills"

// Segmenter runs the section state machine. It keeps no per-document state.
type Segmenter struct {
	targets      []Target
	contactLabel string
	logger       *zap.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Segmenter) { s.logger = l }
}

// WithTargets replaces DefaultTargets. An empty list is ignored.
func WithTargets(targets []Target) Option {
	return func(s *Segmenter) {
		if len(targets) > 0 {
			s.targets = append([]Target(nil), targets...)
		}
	}
}

// WithContactLabel replaces DefaultContactLabel.
func WithContactLabel(label string) Option {
	return func(s *Segmenter) {
		if label != "" {
			s.contactLabel = label
		}
	}
}

// NewSegmenter returns a Segmenter using DefaultTargets.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{
		targets:      append([]Target(nil), DefaultTargets...),
		contactLabel: DefaultContactLabel,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Targets returns the configured targets in extraction order.
func (s *Segmenter) Targets() []Target {
	return append([]Target(nil), s.targets...)
}

// cursor tracks which lines earlier steps have consumed. The line slice
// itself is never modified.
type cursor struct {
	lines    []models.Line
	consumed []bool
}

func (c *cursor) take(i int) string {
	c.consumed[i] = true
	return c.lines[i].Text
}

// Segment extracts the name, the contact block, every target section and
// the unclassified remainder. Only the first block under each heading is
// captured; a repeated heading later in the text falls into Other.
func (s *Segmenter) Segment(lines []models.Line) *models.ParsedResume {
	c := &cursor{lines: lines, consumed: make([]bool, len(lines))}
	out := &models.ParsedResume{
		Sections: make([]models.Section, 0, len(s.targets)),
	}

	for i, l := range lines {
		if l.OnlyPersons() {
			out.Name = c.take(i)
			break
		}
	}

	var contact []string
	for i, l := range lines {
		if c.consumed[i] {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(l.Classification.Label), s.contactLabel) {
			contact = append(contact, c.take(i))
		}
	}
	out.ContactInfo = strings.Join(contact, "\n")

	for _, t := range s.targets {
		body := s.capture(c, t.Label)
		sec := models.Section{Label: t.Label, Key: t.Key, Lines: body, Text: strings.Join(body, "\n")}
		out.Sections = append(out.Sections, sec)
		if t.Key == SkillsKey && sec.Text != "" {
			out.SkillGroups = ChunkTechnicalSkills(sec.Text)
		}
	}

	var rest []string
	for i := range lines {
		if !c.consumed[i] {
			rest = append(rest, c.take(i))
		}
	}
	out.Other = strings.Join(rest, "\n")

	s.logger.Debug("segmented resume",
		zap.Int("lines", len(lines)),
		zap.Bool("name", out.Name != ""),
		zap.Int("contact_lines", len(contact)),
		zap.Int("other_lines", len(rest)))
	return out
}

// capture consumes the first header line for label and the body lines that
// follow it, stopping before the next line headed by a different label.
// Lines repeating the same header are consumed but left out of the body.
func (s *Segmenter) capture(c *cursor, label string) []string {
	start := -1
	for i, l := range c.lines {
		if !c.consumed[i] && l.SectionHeader == label {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	c.take(start)

	var body []string
	for i := start + 1; i < len(c.lines); i++ {
		if c.consumed[i] {
			continue
		}
		h := c.lines[i].SectionHeader
		switch {
		case h == label:
			c.take(i)
		case h != "":
			return body
		default:
			body = append(body, c.take(i))
		}
	}
	return body
}

// ChunkTechnicalSkills splits a skills section into category groups. A line
// containing ':' opens a group and following lines without ':' extend it;
// lines seen before any category stand alone.
func ChunkTechnicalSkills(text string) []string {
	var (
		out    []string
		buf    []string
		inside bool
	)
	flush := func() {
		if len(buf) > 0 {
			out = append(out, strings.Join(buf, "\n"))
			buf = buf[:0]
		}
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.Index(line, ":") > 0:
			flush()
			buf = append(buf, line)
			inside = true
		case inside:
			buf = append(buf, line)
		default:
			out = append(out, line)
		}
	}
	flush()
	return out
}
