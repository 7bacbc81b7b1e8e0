package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Delete all stored data for the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		account := accountFlag(cmd)
		if !yes {
			return fmt.Errorf("refusing to erase account %q without --yes", account)
		}

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.backend.EraseAccount(cmd.Context(), account); err != nil {
			return fmt.Errorf("erase account: %w", err)
		}
		e.log.Info("account erased", "account", account)
		fmt.Fprintf(cmd.OutOrStdout(), "Erased all data for %s.\n", account)
		return nil
	},
}

func init() {
	eraseCmd.Flags().Bool("yes", false, "Confirm the erase")
}
