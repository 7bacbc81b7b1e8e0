package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy [skill-id]",
	Short: "Show the tracking policy for a skill, or list all rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		w := cmd.OutOrStdout()
		table := e.scheduler.Policies()
		if len(args) == 0 {
			fmt.Fprintf(w, "%-16s  %-20s  %s\n", "Subject", "Skill prefix", "Policy")
			fmt.Fprintln(w, strings.Repeat("─", 58))
			for _, r := range table.Rules() {
				prefix := r.SkillPrefix
				if prefix == "" {
					prefix = "*"
				}
				fmt.Fprintf(w, "%-16s  %-20s  %s\n", r.Subject, prefix, r.Policy)
			}
			return nil
		}

		subject = e.subjectFor(args[0], subject)
		fmt.Fprintf(w, "%s (%s): %s\n", args[0], subject, table.Lookup(args[0], subject))
		return nil
	},
}

func init() {
	policyCmd.Flags().String("subject", "", "Subject ID (defaults to the catalog subject of the skill)")
}
