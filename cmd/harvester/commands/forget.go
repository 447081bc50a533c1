package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(forgetCmd)
}

var forgetCmd = &cobra.Command{
	Use:   "forget PATH...",
	Short: "Removes harvest ledger marks, e.g. after the database was restored from a backup.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		l, err := factory.CreateLedger(cmd.Context())
		if err != nil {
			return err
		}
		if l == nil {
			return fmt.Errorf("REDIS_URL is not set, there is no ledger to clear")
		}
		defer l.Close()

		for _, path := range args {
			if err := l.Forget(cmd.Context(), path); err != nil {
				return err
			}
			logger.Info("Ledger mark removed", zap.String("detail_url", path))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d ledger marks removed\n", len(args))
		return nil
	},
}
