// Package curriculum holds the subject and skill catalog.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Subject is a school subject such as mathematics.
type Subject struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Skill is one trackable unit of knowledge.
type Skill struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Subject       string   `yaml:"subject"`
	Topic         string   `yaml:"topic"`
	Prerequisites []string `yaml:"prerequisites"`
}

type document struct {
	Subjects []Subject `yaml:"subjects"`
	Skills   []Skill   `yaml:"skills"`
}

// Catalog is a validated, immutable skill catalog.
type Catalog struct {
	subjects  []Subject
	skills    []Skill // topological order
	byID      map[string]int
	bySubject map[string][]Skill
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a catalog from YAML.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Subjects, doc.Skills)
}

// New validates subjects and skills and builds a catalog.
func New(subjects []Subject, skills []Skill) (*Catalog, error) {
	if err := validateCatalog(subjects, skills); err != nil {
		return nil, err
	}

	c := &Catalog{
		subjects:  append([]Subject(nil), subjects...),
		skills:    topoSort(skills),
		byID:      make(map[string]int, len(skills)),
		bySubject: make(map[string][]Skill),
	}
	for i, s := range c.skills {
		c.byID[s.ID] = i
		c.bySubject[s.Subject] = append(c.bySubject[s.Subject], s)
	}
	return c, nil
}

// Subjects returns all subjects in catalog order.
func (c *Catalog) Subjects() []Subject {
	return append([]Subject(nil), c.subjects...)
}

// Skills returns every skill, prerequisites before dependents.
func (c *Catalog) Skills() []Skill {
	return append([]Skill(nil), c.skills...)
}

// Skill looks up a skill by ID.
func (c *Catalog) Skill(id string) (Skill, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Skill{}, false
	}
	return c.skills[i], true
}

// BySubject returns the skills of a subject, prerequisites first.
func (c *Catalog) BySubject(subject string) []Skill {
	return append([]Skill(nil), c.bySubject[subject]...)
}

// SubjectOf returns the subject ID of a skill, or "" if unknown.
func (c *Catalog) SubjectOf(skillID string) string {
	s, ok := c.Skill(skillID)
	if !ok {
		return ""
	}
	return s.Subject
}

// Available returns skills not yet mastered whose prerequisites all are.
func (c *Catalog) Available(mastered map[string]bool) []Skill {
	var out []Skill
	for _, s := range c.skills {
		if mastered[s.ID] {
			continue
		}
		ready := true
		for _, p := range s.Prerequisites {
			if !mastered[p] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, s)
		}
	}
	return out
}

// validateCatalog performs all structural checks. Returns a combined error
// describing all problems found, or nil if valid.
func validateCatalog(subjects []Subject, skills []Skill) error {
	var errs []string

	subjectSet := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, "subject with empty ID")
			continue
		}
		if subjectSet[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate subject ID: %q", s.ID))
		}
		subjectSet[s.ID] = true
	}

	idSet := make(map[string]bool, len(skills))
	for _, s := range skills {
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, "skill with empty ID")
			continue
		}
		if idSet[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate skill ID: %q", s.ID))
		}
		idSet[s.ID] = true
		if !subjectSet[s.Subject] {
			errs = append(errs, fmt.Sprintf("skill %q references unknown subject %q", s.ID, s.Subject))
		}
	}

	for _, s := range skills {
		for _, prereqID := range s.Prerequisites {
			if !idSet[prereqID] {
				errs = append(errs, fmt.Sprintf("skill %q references nonexistent prerequisite %q", s.ID, prereqID))
			}
		}
	}

	if len(errs) == 0 {
		if sorted := topoSort(skills); len(sorted) < len(skills) {
			in := make(map[string]bool, len(sorted))
			for _, s := range sorted {
				in[s.ID] = true
			}
			var cycleNodes []string
			for _, s := range skills {
				if !in[s.ID] {
					cycleNodes = append(cycleNodes, s.ID)
				}
			}
			errs = append(errs, fmt.Sprintf("cycle detected involving skills: %s", strings.Join(cycleNodes, ", ")))
		}
	}

	if len(errs) > 0 {
		return errors.New("catalog validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

// topoSort orders skills with Kahn's algorithm, breaking ties by ID. Skills
// on a cycle are left out.
func topoSort(skills []Skill) []Skill {
	byID := make(map[string]Skill, len(skills))
	inDegree := make(map[string]int, len(skills))
	dependents := make(map[string][]string)
	for _, s := range skills {
		byID[s.ID] = s
		inDegree[s.ID] = len(s.Prerequisites)
		for _, p := range s.Prerequisites {
			dependents[p] = append(dependents[p], s.ID)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var out []Skill
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, byID[id])

		deps := append([]string(nil), dependents[id]...)
		sort.Strings(deps)
		for _, d := range deps {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	return out
}
