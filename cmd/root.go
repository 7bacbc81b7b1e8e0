package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "plugg",
	Short:         "Mastery tracking and review scheduling for study skills",
	Long:          "plugg records practice attempts, estimates skill mastery and schedules spaced repetition reviews.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PLUGG_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().String("account", defaultAccount(), "Account ID (defaults to PLUGG_ACCOUNT or \"local\")")

	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(versionCmd)
}

func defaultAccount() string {
	if a := os.Getenv("PLUGG_ACCOUNT"); a != "" {
		return a
	}
	return "local"
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured DSN, then PLUGG_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, nil
	}
	return store.DefaultDBPath()
}

func accountFlag(cmd *cobra.Command) string {
	a, _ := cmd.Flags().GetString("account")
	return a
}
