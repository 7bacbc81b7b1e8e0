package curriculum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default(): %v", err)
	}
	if got := len(c.Subjects()); got != 3 {
		t.Errorf("subjects = %d, want 3", got)
	}

	s, ok := c.Skill("genetics-inheritance")
	if !ok {
		t.Fatal("genetics-inheritance missing")
	}
	if s.Subject != "biology" || s.Topic != "genetics" {
		t.Errorf("skill = %+v", s)
	}
	if c.SubjectOf("vocab-everyday") != "english" {
		t.Errorf("SubjectOf(vocab-everyday) = %q", c.SubjectOf("vocab-everyday"))
	}
	if c.SubjectOf("nope") != "" {
		t.Error("unknown skill should have no subject")
	}
}

func TestSkillsInTopologicalOrder(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[string]int)
	for i, s := range c.Skills() {
		pos[s.ID] = i
	}
	for _, s := range c.Skills() {
		for _, p := range s.Prerequisites {
			if pos[p] >= pos[s.ID] {
				t.Errorf("%s appears before its prerequisite %s", s.ID, p)
			}
		}
	}

	math := c.BySubject("mathematics")
	if len(math) == 0 || math[0].ID != "arithmetic-fractions" {
		t.Errorf("BySubject(mathematics)[0] = %v, want arithmetic-fractions first", math)
	}
}

func TestAvailable(t *testing.T) {
	c, err := New(
		[]Subject{{ID: "mathematics"}},
		[]Skill{
			{ID: "a", Subject: "mathematics"},
			{ID: "b", Subject: "mathematics", Prerequisites: []string{"a"}},
			{ID: "c", Subject: "mathematics", Prerequisites: []string{"a", "b"}},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	ids := func(skills []Skill) string {
		var out []string
		for _, s := range skills {
			out = append(out, s.ID)
		}
		return strings.Join(out, ",")
	}
	if got := ids(c.Available(nil)); got != "a" {
		t.Errorf("Available(none) = %s, want a", got)
	}
	if got := ids(c.Available(map[string]bool{"a": true})); got != "b" {
		t.Errorf("Available(a) = %s, want b", got)
	}
	if got := ids(c.Available(map[string]bool{"a": true, "b": true})); got != "c" {
		t.Errorf("Available(a,b) = %s, want c", got)
	}
}

func TestValidation(t *testing.T) {
	subjects := []Subject{{ID: "mathematics"}}
	tests := []struct {
		name     string
		subjects []Subject
		skills   []Skill
		wantErr  string
	}{
		{
			name:     "duplicate skill",
			subjects: subjects,
			skills:   []Skill{{ID: "a", Subject: "mathematics"}, {ID: "a", Subject: "mathematics"}},
			wantErr:  `duplicate skill ID: "a"`,
		},
		{
			name:     "duplicate subject",
			subjects: []Subject{{ID: "x"}, {ID: "x"}},
			wantErr:  `duplicate subject ID: "x"`,
		},
		{
			name:     "unknown subject",
			subjects: subjects,
			skills:   []Skill{{ID: "a", Subject: "history"}},
			wantErr:  `unknown subject "history"`,
		},
		{
			name:     "dangling prerequisite",
			subjects: subjects,
			skills:   []Skill{{ID: "a", Subject: "mathematics", Prerequisites: []string{"ghost"}}},
			wantErr:  `nonexistent prerequisite "ghost"`,
		},
		{
			name:     "cycle",
			subjects: subjects,
			skills: []Skill{
				{ID: "root", Subject: "mathematics"},
				{ID: "a", Subject: "mathematics", Prerequisites: []string{"b"}},
				{ID: "b", Subject: "mathematics", Prerequisites: []string{"a"}},
			},
			wantErr: "cycle detected involving skills: a, b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.subjects, tt.skills)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `
subjects:
  - id: chemistry
    name: Kemi
skills:
  - id: organic-naming
    name: Nomenklatur
    subject: chemistry
    topic: organic
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, ok := c.Skill("organic-naming"); !ok {
		t.Error("organic-naming missing")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse([]byte("skills: [oops")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
