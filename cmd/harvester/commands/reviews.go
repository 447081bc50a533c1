package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewsFormat string

func init() {
	reviewsCmd.Flags().StringVar(&reviewsFormat, "format", string(formatTable), "Output format: table or json.")
	rootCmd.AddCommand(reviewsCmd)
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews PATH [--format json|table]",
	Short: "Harvests the reviews and address of one restaurant.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(reviewsFormat)
		if err != nil {
			return err
		}
		factory, err := newFactory()
		if err != nil {
			return err
		}
		harvester, err := factory.CreateHarvester(progressFor(cmd))
		if err != nil {
			return err
		}

		details, err := harvester.HarvestRestaurant(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reviews harvest failed: %w", err)
		}

		return renderDetails(cmd.OutOrStdout(), format, details)
	},
}
