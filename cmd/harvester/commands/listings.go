package commands

import (
	"fmt"

	"restoharvest/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listingsStart  string
	listingsFormat string
	listingsSave   bool
)

func init() {
	listingsCmd.Flags().StringVar(&listingsStart, "start", "", "Relative path of the first listings page (defaults to LISTINGS_START_PATH).")
	listingsCmd.Flags().StringVar(&listingsFormat, "format", string(formatTable), "Output format: table or json.")
	listingsCmd.Flags().BoolVar(&listingsSave, "save", false, "Store harvested restaurants in the database.")
	rootCmd.AddCommand(listingsCmd)
}

var listingsCmd = &cobra.Command{
	Use:   "listings [--start PATH] [--format json|table] [--save]",
	Short: "Harvests the restaurant listings collection.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(listingsFormat)
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

		start := listingsStart
		if start == "" {
			start = cfg.ListingsStartPath
		}

		listings, err := harvester.HarvestListings(cmd.Context(), start)
		if err != nil {
			return fmt.Errorf("listings harvest failed: %w", err)
		}

		if listingsSave {
			db, err := factory.CreateDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := service.StoreListings(cmd.Context(), db.Restaurants(), listings, logger)
			if err != nil {
				return err
			}
			logger.Info("Listings saved",
				zap.Int("stored", result.Stored),
				zap.Int("new", result.Created),
				zap.Int("failed", len(result.Failed)))
		}

		return renderListings(cmd.OutOrStdout(), format, listings)
	},
}
