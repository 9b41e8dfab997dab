// Package models defines the records that flow between the segmentation stages.
package models

import "strings"

// Entity labels produced by recognizers.
const (
	EntityPerson       = "PERSON"
	EntityOrganization = "ORGANIZATION"
	EntityLocation     = "LOCATION"
	EntityMisc         = "MISC"
)

// NormalizeEntityLabel maps short tagger labels (PER, ORG, LOC) to the canonical set.
func NormalizeEntityLabel(label string) string {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PER", "PERSON":
		return EntityPerson
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return EntityOrganization
	case "LOC", "LOCATION", "GPE":
		return EntityLocation
	default:
		return EntityMisc
	}
}

// Entity is one recognized span.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classification is one ranked classifier label. An empty Label means none.
type Classification struct {
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Line is the feature record for one physical line.
type Line struct {
	Text                  string         `json:"line"`
	Index                 int            `json:"index"`
	ContainsBullet        bool           `json:"contains_bullet"`
	ContainsContactInfo   bool           `json:"contains_contact_info"`
	EndsWithConjunction   bool           `json:"ends_with_conjunction"`
	StartsWithConjunction bool           `json:"starts_with_conjunction"`
	IsVisuallySeparated   bool           `json:"is_visually_separated"`
	Classification        Classification `json:"classification"`
	Entities              []Entity       `json:"entities,omitempty"`
	SectionHeader         string         `json:"section_header,omitempty"`
}

// HasEntity reports whether the line carries at least one entity with label.
func (l Line) HasEntity(label string) bool {
	for _, e := range l.Entities {
		if e.Label == label {
			return true
		}
	}
	return false
}

// OnlyPersons reports whether the line has entities and every one is a PERSON.
func (l Line) OnlyPersons() bool {
	if len(l.Entities) == 0 {
		return false
	}
	for _, e := range l.Entities {
		if e.Label != EntityPerson {
			return false
		}
	}
	return true
}

// MergedLine is a run of consecutive source lines joined into one logical line.
// Sources holds the indices of the constituent lines in ascending order.
type MergedLine struct {
	Text    string `json:"text"`
	Sources []int  `json:"sources"`
}
