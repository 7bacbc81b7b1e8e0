package spacedrep

import (
	"errors"
	"testing"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

func TestDefaultPolicyTable(t *testing.T) {
	table, err := NewPolicyTable(DefaultRules())
	if err != nil {
		t.Fatalf("NewPolicyTable: %v", err)
	}
	tests := []struct {
		skill, subject string
		want           Policy
	}{
		{"vocab-irregular-verbs", "english", PolicySpacedRepetition},
		{"grammar-tenses", "English ", PolicySpacedRepetition},
		{"genetics-punnett-squares", "biology", PolicySpacedRepetition},
		{"Genetics-Mendel", "BIOLOGY", PolicySpacedRepetition},
		{"cell-structure", "biology", PolicyMastery},
		{"algebra-linear-equations", "mathematics", PolicyMastery},
		{"anything", "history", PolicyMastery},
		{"anything", "", PolicyMastery},
	}
	for _, tt := range tests {
		if got := table.Lookup(tt.skill, tt.subject); got != tt.want {
			t.Errorf("Lookup(%q, %q) = %s, want %s", tt.skill, tt.subject, got, tt.want)
		}
	}
}

func TestLongestPrefixWins(t *testing.T) {
	table, err := NewPolicyTable([]Rule{
		{Subject: "chemistry", SkillPrefix: "org", Policy: PolicySpacedRepetition},
		{Subject: "chemistry", SkillPrefix: "organic-naming", Policy: PolicyMastery},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Lookup("organic-naming-alkanes", "chemistry"); got != PolicyMastery {
		t.Errorf("longest prefix: got %s, want mastery", got)
	}
	if got := table.Lookup("organometallics", "chemistry"); got != PolicySpacedRepetition {
		t.Errorf("shorter prefix: got %s, want spaced-repetition", got)
	}
	if got := table.Lookup("acids", "chemistry"); got != PolicyMastery {
		t.Errorf("no match: got %s, want fallback mastery", got)
	}
}

func TestNewPolicyTableRejects(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"blank subject", []Rule{{Subject: " ", Policy: PolicyMastery}}},
		{"unknown policy", []Rule{{Subject: "x", Policy: "cram"}}},
		{"duplicate", []Rule{
			{Subject: "x", Policy: PolicyMastery},
			{Subject: "X", Policy: PolicySpacedRepetition},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPolicyTable(tt.rules); !errors.Is(err, validate.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"mastery":           PolicyMastery,
		"Spaced-Repetition": PolicySpacedRepetition,
		"srs":               PolicySpacedRepetition,
	} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("weekly"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
