package models

// Section is the body captured under one canonical heading.
type Section struct {
	Label string   `json:"label"`
	Key   string   `json:"key"`
	Lines []string `json:"lines,omitempty"`
	Text  string   `json:"text"`
}

// ParsedResume is the output of the section state machine.
type ParsedResume struct {
	Name        string    `json:"name"`
	ContactInfo string    `json:"contact_info"`
	Sections    []Section `json:"sections"`
	Other       string    `json:"other"`
	SkillGroups []string  `json:"skill_groups,omitempty"`
}

// Field is one key/value pair of a parsed résumé in output order.
type Field struct {
	Key   string
	Value string
}

// Section returns the text captured for label, or "" when absent.
func (r *ParsedResume) Section(label string) string {
	for _, s := range r.Sections {
		if s.Label == label {
			return s.Text
		}
	}
	return ""
}

// Fields returns name, contact_info, each section by key, and other.
func (r *ParsedResume) Fields() []Field {
	out := make([]Field, 0, len(r.Sections)+3)
	out = append(out, Field{Key: "name", Value: r.Name}, Field{Key: "contact_info", Value: r.ContactInfo})
	for _, s := range r.Sections {
		out = append(out, Field{Key: s.Key, Value: s.Text})
	}
	return append(out, Field{Key: "other", Value: r.Other})
}
