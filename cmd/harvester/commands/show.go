package commands

import (
	"fmt"

	"restoharvest/internal/service"

	"github.com/spf13/cobra"
)

var showFormat string

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", string(formatTable), "Output format: table or json.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show PATH [--format json|table]",
	Short: "Shows what the database holds for one restaurant.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(showFormat)
		if err != nil {
			return err
		}
		factory, err := newFactory()
		if err != nil {
			return err
		}
		db, err := factory.CreateDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		stored, err := service.LookupRestaurant(cmd.Context(), db, args[0])
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("restaurant %s is not stored", args[0])
		}
		return renderStored(cmd.OutOrStdout(), format, stored)
	},
}
