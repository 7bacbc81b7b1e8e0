package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/practice"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt <skill-id> <correct|wrong>",
	Short: "Record a practice attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, err := parseOutcome(args[1])
		if err != nil {
			return err
		}
		timeMs, _ := cmd.Flags().GetInt64("time")
		subject, _ := cmd.Flags().GetString("subject")

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.practice.Submit(cmd.Context(), practice.Submission{
			Attempt: mastery.Attempt{
				AccountID:   accountFlag(cmd),
				SkillID:     args[0],
				IsCorrect:   correct,
				TimeSpentMs: timeMs,
			},
			SubjectID: subject,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %d%% (%s), %d/%d correct\n",
			out.State.SkillID, mastery.Percentage(out.State.Probability), out.Level,
			out.State.CorrectAttempts, out.State.Attempts)
		if out.Transition != nil {
			fmt.Fprintf(w, "level changed: %s -> %s\n", out.Transition.From, out.Transition.To)
		}
		if out.Review != nil {
			fmt.Fprintf(w, "next review: %s (in %s)\n",
				out.Review.NextReviewAt.Local().Format("2006-01-02 15:04"), formatHours(out.Review.IntervalHours))
		}
		fmt.Fprintf(w, "suggested difficulty: %s\n", out.NextDifficulty)
		return nil
	},
}

func init() {
	attemptCmd.Flags().Int64("time", 0, "Time spent on the attempt in milliseconds")
	attemptCmd.Flags().String("subject", "", "Subject ID (defaults to the catalog subject of the skill)")
}

func parseOutcome(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "correct", "right", "yes", "1", "true":
		return true, nil
	case "wrong", "incorrect", "no", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("outcome must be correct or wrong, got %q", s)
}

func formatHours(h float64) string {
	if h < 48 {
		return fmt.Sprintf("%.1fh", h)
	}
	return fmt.Sprintf("%.1fd", h/24)
}
