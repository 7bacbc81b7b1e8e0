package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review <skill-id> <correct|wrong>",
	Short: "Record a review outcome without touching mastery",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, err := parseOutcome(args[1])
		if err != nil {
			return err
		}
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		item, err := e.scheduler.ScheduleSpacedRepetition(cmd.Context(), accountFlag(cmd), args[0], correct)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: repetition %d, ease %.2f, next review %s (in %s)\n",
			item.SkillID, item.Repetitions, item.EaseFactor,
			item.NextReviewAt.Local().Format("2006-01-02 15:04"), formatHours(item.IntervalHours))
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List reviews that are due now",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		now := time.Now()
		items, err := e.scheduler.DueItems(cmd.Context(), accountFlag(cmd), now)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(w, "Nothing due.")
			return nil
		}
		fmt.Fprintf(w, "%-32s  %-8s  %5s  %10s\n", "Skill", "Status", "Reps", "Overdue")
		fmt.Fprintln(w, strings.Repeat("─", 61))
		for _, it := range items {
			fmt.Fprintf(w, "%-32s  %-8s  %5d  %10s\n",
				it.SkillID, it.Status(now), it.Repetitions, formatHours(it.OverdueHours(now)))
		}
		fmt.Fprintf(w, "\n%d due\n", len(items))
		return nil
	},
}
