// Package headings loads the canonical heading dictionary and resolves lines
// to canonical section labels.
package headings

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Label types used in the dictionary.
const (
	TypeSectionHeading = "SECTION_HEADING"
	TypeSubLabel       = "SUB_LABEL"
)

var (
	// ErrEmptyDictionary is returned when a dictionary has no labels.
	ErrEmptyDictionary = errors.New("heading dictionary has no labels")
	// ErrInvalidEntry is returned for a label without a canonical name.
	ErrInvalidEntry = errors.New("heading dictionary entry has no canonical_label")
)

//go:embed default_labels.json
var defaultDictionary []byte

// Label is one dictionary entry: a canonical label and its surface forms.
type Label struct {
	LabelType      string   `json:"label_type" yaml:"label_type"`
	CanonicalLabel string   `json:"canonical_label" yaml:"canonical_label"`
	Synonyms       []string `json:"synonyms" yaml:"synonyms"`
	BelongsTo      string   `json:"belongs_to,omitempty" yaml:"belongs_to,omitempty"`
}

// Dictionary is the on-disk form of the heading dictionary.
type Dictionary struct {
	Labels []Label `json:"labels" yaml:"labels"`
}

// Entry is what a surface form resolves to.
type Entry struct {
	CanonicalLabel string `json:"canonical_label"`
	LabelType      string `json:"label_type"`
	BelongsTo      string `json:"belongs_to,omitempty"`
}

// Map is the read-only lookup from lower-cased surface form to Entry.
// Every canonical label is also a key that maps to itself.
type Map struct {
	entries  map[string]Entry
	synonyms map[string][]string
	labels   []Entry
}

// Load reads a dictionary from path (JSON, or YAML by .yaml/.yml extension).
// An empty path loads the built-in dictionary.
func Load(path string) (*Map, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read heading dictionary: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("heading dictionary %s: %w", path, err)
	}
	return m, nil
}

// Default returns the built-in dictionary.
func Default() (*Map, error) {
	return Parse(defaultDictionary, "json")
}

// Parse decodes a dictionary in the given format ("json" or "yaml").
func Parse(data []byte, format string) (*Map, error) {
	var dict Dictionary
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &dict); err != nil {
			return nil, fmt.Errorf("failed to parse heading dictionary: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &dict); err != nil {
			return nil, fmt.Errorf("failed to parse heading dictionary: %w", err)
		}
	}
	return New(dict)
}

// New builds a Map. When two labels claim the same surface form the first wins.
func New(dict Dictionary) (*Map, error) {
	if len(dict.Labels) == 0 {
		return nil, ErrEmptyDictionary
	}
	m := &Map{
		entries:  make(map[string]Entry),
		synonyms: make(map[string][]string),
	}
	for i, l := range dict.Labels {
		canonical := strings.TrimSpace(l.CanonicalLabel)
		if canonical == "" {
			return nil, fmt.Errorf("label %d: %w", i, ErrInvalidEntry)
		}
		labelType := strings.TrimSpace(l.LabelType)
		if labelType == "" {
			labelType = TypeSectionHeading
		}
		entry := Entry{CanonicalLabel: canonical, LabelType: labelType, BelongsTo: strings.TrimSpace(l.BelongsTo)}
		m.labels = append(m.labels, entry)
		m.add(canonical, entry)
		for _, syn := range l.Synonyms {
			m.add(syn, entry)
		}
	}
	return m, nil
}

func (m *Map) add(form string, e Entry) {
	key := normalize(form)
	if key == "" {
		return
	}
	if _, ok := m.entries[key]; ok {
		return
	}
	m.entries[key] = e
	m.synonyms[e.CanonicalLabel] = append(m.synonyms[e.CanonicalLabel], key)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve looks up the trimmed, lower-cased line.
func (m *Map) Resolve(line string) (Entry, bool) {
	e, ok := m.entries[normalize(line)]
	return e, ok
}

// SectionHeader returns the canonical label when line is exactly a known
// section heading surface form, else "".
func (m *Map) SectionHeader(line string) string {
	e, ok := m.Resolve(line)
	if !ok || e.LabelType != TypeSectionHeading {
		return ""
	}
	return e.CanonicalLabel
}

// SynonymsByLabel groups every surface form under its canonical label.
func (m *Map) SynonymsByLabel() map[string][]string {
	out := make(map[string][]string, len(m.synonyms))
	for k, v := range m.synonyms {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// CanonicalLabels returns canonical labels in dictionary order. An empty
// labelType returns every label.
func (m *Map) CanonicalLabels(labelType string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range m.labels {
		if labelType != "" && e.LabelType != labelType {
			continue
		}
		if seen[e.CanonicalLabel] {
			continue
		}
		seen[e.CanonicalLabel] = true
		out = append(out, e.CanonicalLabel)
	}
	return out
}

// Keys returns all surface forms of the given label type, sorted.
func (m *Map) Keys(labelType string) []string {
	var out []string
	for k, e := range m.entries {
		if labelType == "" || e.LabelType == labelType {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of surface forms.
func (m *Map) Len() int {
	return len(m.entries)
}
