package commands

import (
	"restoharvest/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the batch harvest on HARVEST_CRON with health and metrics endpoints.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		server, err := app.NewServerWithFactory(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return server.Start(cmd.Context())
	},
}
