package models

import "testing"

func TestNormalizeEntityLabel(t *testing.T) {
	cases := map[string]string{
		"PER":          EntityPerson,
		"per":          EntityPerson,
		"ORG":          EntityOrganization,
		"Organization": EntityOrganization,
		"LOC":          EntityLocation,
		"GPE":          EntityLocation,
		"DATE":         EntityMisc,
	}
	for in, want := range cases {
		if got := NormalizeEntityLabel(in); got != want {
			t.Errorf("NormalizeEntityLabel(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLine_OnlyPersons(t *testing.T) {
	if (Line{}).OnlyPersons() {
		t.Error("no entities must not count as persons only")
	}
	l := Line{Entities: []Entity{{Text: "Jane", Label: EntityPerson}, {Text: "Smith", Label: EntityPerson}}}
	if !l.OnlyPersons() {
		t.Error("all PERSON entities expected true")
	}
	l.Entities = append(l.Entities, Entity{Text: "MIT", Label: EntityOrganization})
	if l.OnlyPersons() {
		t.Error("mixed entities expected false")
	}
	if !l.HasEntity(EntityOrganization) {
		t.Error("HasEntity(ORGANIZATION) expected true")
	}
}

func TestParsedResume_Fields(t *testing.T) {
	r := &ParsedResume{
		Name:        "Jane Smith",
		ContactInfo: "jane@x.com",
		Sections: []Section{
			{Label: "EDUCATION", Key: "education", Text: "MIT"},
		},
		Other: "misc",
	}
	fields := r.Fields()
	wantKeys := []string{"name", "contact_info", "education", "other"}
	if len(fields) != len(wantKeys) {
		t.Fatalf("got %d fields", len(fields))
	}
	for i, k := range wantKeys {
		if fields[i].Key != k {
			t.Errorf("field %d key=%q want %q", i, fields[i].Key, k)
		}
	}
	if r.Section("EDUCATION") != "MIT" || r.Section("MISSING") != "" {
		t.Error("Section lookup mismatch")
	}
}
