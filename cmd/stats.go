package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		account := accountFlag(cmd)

		sum, err := e.analytics.Accuracy(ctx, account)
		if err != nil {
			return err
		}
		streak, err := e.analytics.StudyStreak(ctx, account)
		if err != nil {
			return err
		}
		weak, err := e.analytics.WeakestSkills(ctx, account, limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "attempts:  %d (%d correct)\n", sum.Attempts, sum.CorrectAttempts)
		fmt.Fprintf(w, "accuracy:  %d%%\n", mastery.Percentage(sum.Accuracy))
		fmt.Fprintf(w, "streak:    %d day(s)\n", streak)
		fmt.Fprintf(w, "skills:    %d", sum.Skills)
		if sum.Skills > 0 {
			parts := make([]string, 0, len(mastery.Levels))
			for _, l := range mastery.Levels {
				parts = append(parts, fmt.Sprintf("%d %s", sum.ByLevel[l], l))
			}
			fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
		}
		fmt.Fprintln(w)

		if len(weak) == 0 {
			return nil
		}
		fmt.Fprintf(w, "\n%-32s  %7s  %6s  %6s\n", "Weakest skills", "Mastery", "Errors", "Score")
		fmt.Fprintln(w, strings.Repeat("─", 57))
		for _, ws := range weak {
			fmt.Fprintf(w, "%-32s  %6d%%  %6d  %6.2f\n",
				ws.SkillID, mastery.Percentage(ws.Probability), ws.RecentErrors, ws.Score)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("limit", 5, "Number of weakest skills to show (0 = all)")
}
