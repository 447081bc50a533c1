package commands

import (
	"restoharvest/internal/external/scraper"
	"restoharvest/internal/model"
	"restoharvest/internal/service"

	"github.com/spf13/cobra"
)

var (
	batchCuisine      string
	batchName         string
	batchLimit        int
	batchSkipListings bool
	batchStart        string
	batchFormat       string
)

func init() {
	batchCmd.Flags().StringVar(&batchCuisine, "type", "", "Only restaurants with this cuisine type.")
	batchCmd.Flags().StringVar(&batchName, "name", "", "Only restaurants whose name contains this text.")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "Maximum number of restaurants to harvest (0 = no limit).")
	batchCmd.Flags().BoolVar(&batchSkipListings, "skip-listings", false, "Harvest reviews of stored restaurants without refreshing the listings.")
	batchCmd.Flags().StringVar(&batchStart, "start", "", "Relative path of the first listings page (defaults to LISTINGS_START_PATH).")
	batchCmd.Flags().StringVar(&batchFormat, "format", string(formatTable), "Output format: table or json.")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [--type CUISINE] [--name NAME] [--limit N] [--skip-listings] [--start PATH]",
	Short: "Harvests listings, then reviews of every restaurant not harvested yet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(batchFormat)
		if err != nil {
			return err
		}
		factory, err := newFactory()
		if err != nil {
			return err
		}
		var extra []scraper.Observer
		if progress := progressFor(cmd); progress != nil {
			extra = append(extra, progress)
		}
		components, err := factory.CreateComponents(cmd.Context(), extra...)
		if err != nil {
			return err
		}
		defer components.Close(logger)

		start := batchStart
		if start == "" {
			start = cfg.ListingsStartPath
		}

		report, err := components.Services.Batch.Run(cmd.Context(), service.BatchOptions{
			StartPath:    start,
			SkipListings: batchSkipListings,
			Filter: model.RestaurantFilter{
				Name:    batchName,
				Cuisine: batchCuisine,
				Limit:   batchLimit,
			},
		})
		if report != nil {
			if renderErr := renderReport(cmd.OutOrStdout(), format, report); renderErr != nil {
				return renderErr
			}
		}
		return err
	},
}
