package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
)

var levelCmd = &cobra.Command{
	Use:   "level <skill-id>",
	Short: "Show mastery level for a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		account := accountFlag(cmd)
		st, err := e.mastery.GetState(ctx, account, args[0])
		if err != nil {
			return err
		}
		level, err := e.mastery.GetMasteryLevel(ctx, account, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "skill:       %s\n", args[0])
		fmt.Fprintf(w, "level:       %s\n", level)
		fmt.Fprintf(w, "mastery:     %d%%\n", mastery.Percentage(st.Probability))
		fmt.Fprintf(w, "attempts:    %d (%d correct)\n", st.Attempts, st.CorrectAttempts)
		fmt.Fprintf(w, "difficulty:  %s\n", e.mastery.RecommendDifficulty(st.Probability))
		return nil
	},
}
