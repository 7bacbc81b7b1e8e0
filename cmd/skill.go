package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/curriculum"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Browse the skill catalog",
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills (optionally filtered by subject or availability)",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		available, _ := cmd.Flags().GetBool("available")

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		account := accountFlag(cmd)

		var skills []curriculum.Skill
		if available {
			mastered, err := masteredSkills(cmd, e)
			if err != nil {
				return err
			}
			skills = e.catalog.Available(mastered)
		} else {
			skills = e.catalog.Skills()
		}
		if subject != "" {
			filtered := skills[:0]
			for _, s := range skills {
				if s.Subject == subject {
					filtered = append(filtered, s)
				}
			}
			skills = filtered
			if len(skills) == 0 && len(e.catalog.BySubject(subject)) == 0 {
				return fmt.Errorf("no skills found for subject %q", subject)
			}
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-30s  %-36s  %-12s  %-18s  %7s\n",
			"ID", "Name", "Subject", "Policy", "Mastery")
		fmt.Fprintln(w, strings.Repeat("─", 111))

		table := e.scheduler.Policies()
		for _, s := range skills {
			name := s.Name
			if len(name) > 36 {
				name = name[:33] + "..."
			}
			pct, err := e.mastery.GetMasteryPercentage(ctx, account, s.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-30s  %-36s  %-12s  %-18s  %6d%%\n",
				s.ID, name, s.Subject, table.Lookup(s.ID, s.Subject), pct)
		}

		fmt.Fprintf(w, "\n%d skills\n", len(skills))
		return nil
	},
}

func init() {
	skillListCmd.Flags().String("subject", "", "Filter by subject (e.g. mathematics)")
	skillListCmd.Flags().Bool("available", false, "Only skills whose prerequisites are mastered")

	skillCmd.AddCommand(skillListCmd)
}

func masteredSkills(cmd *cobra.Command, e *engine) (map[string]bool, error) {
	recs, err := e.backend.ListMastery(cmd.Context(), accountFlag(cmd))
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.IsMastered {
			out[r.SkillID] = true
		}
	}
	return out, nil
}
