package spacedrep

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// Policy selects how progress on a skill is tracked.
type Policy string

const (
	PolicyMastery          Policy = "mastery"
	PolicySpacedRepetition Policy = "spaced-repetition"
)

// ParsePolicy accepts the policy names used in configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(normalize(s)) {
	case PolicyMastery:
		return PolicyMastery, nil
	case PolicySpacedRepetition, "spaced_repetition", "srs":
		return PolicySpacedRepetition, nil
	}
	return "", fmt.Errorf("%w: unknown policy %q", validate.ErrInvalidInput, s)
}

// Rule maps a subject, optionally narrowed to skills with a given ID
// prefix, to a policy.
type Rule struct {
	Subject     string `mapstructure:"subject" yaml:"subject" validate:"nonblank"`
	SkillPrefix string `mapstructure:"skill_prefix" yaml:"skill_prefix"`
	Policy      Policy `mapstructure:"policy" yaml:"policy" validate:"oneof=mastery spaced-repetition"`
}

// DefaultRules is the built-in policy table.
func DefaultRules() []Rule {
	return []Rule{
		{Subject: "english", Policy: PolicySpacedRepetition},
		{Subject: "biology", SkillPrefix: "genetics", Policy: PolicySpacedRepetition},
		{Subject: "biology", Policy: PolicyMastery},
		{Subject: "mathematics", Policy: PolicyMastery},
	}
}

// PolicyTable resolves the policy for a (skill, subject) pair. The most
// specific rule wins: longest matching skill prefix within the subject,
// then the subject-wide rule, then PolicyMastery.
type PolicyTable struct {
	bySubject map[string][]Rule // sorted by prefix length, longest first
}

// NewPolicyTable validates rules and builds a table. Two rules with the
// same subject and prefix are rejected.
func NewPolicyTable(rules []Rule) (*PolicyTable, error) {
	t := &PolicyTable{bySubject: make(map[string][]Rule)}
	seen := make(map[[2]string]bool)
	for i, r := range rules {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		r.Subject = normalize(r.Subject)
		r.SkillPrefix = normalize(r.SkillPrefix)
		k := [2]string{r.Subject, r.SkillPrefix}
		if seen[k] {
			return nil, fmt.Errorf("rule %d: %w: duplicate rule for %s/%q", i, validate.ErrInvalidInput, r.Subject, r.SkillPrefix)
		}
		seen[k] = true
		t.bySubject[r.Subject] = append(t.bySubject[r.Subject], r)
	}
	for _, rs := range t.bySubject {
		sort.SliceStable(rs, func(i, j int) bool { return len(rs[i].SkillPrefix) > len(rs[j].SkillPrefix) })
	}
	return t, nil
}

// Lookup returns the policy for skillID within subjectID.
func (t *PolicyTable) Lookup(skillID, subjectID string) Policy {
	skill := normalize(skillID)
	for _, r := range t.bySubject[normalize(subjectID)] {
		if strings.HasPrefix(skill, r.SkillPrefix) {
			return r.Policy
		}
	}
	return PolicyMastery
}

// Rules returns the table's rules ordered by subject, most specific first.
func (t *PolicyTable) Rules() []Rule {
	subjects := make([]string, 0, len(t.bySubject))
	for s := range t.bySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	var out []Rule
	for _, s := range subjects {
		out = append(out, t.bySubject[s]...)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
