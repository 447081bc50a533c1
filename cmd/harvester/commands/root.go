// Package commands содержит команды CLI harvester.
package commands

import (
	"context"
	"fmt"
	"os"

	"restoharvest/internal/app"
	"restoharvest/internal/config"
	applogger "restoharvest/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg          *config.Config
	logger       *zap.Logger
	showProgress bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "Print page-by-page progress to stderr.")
}

var rootCmd = &cobra.Command{
	Use:          "harvester",
	Short:        "harvester collects restaurant listings and reviews from a review aggregator.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logConfig := applogger.DefaultConfig()
		logConfig.Level = cfg.LogLevel
		logConfig.Path = cfg.LogPath
		logConfig.Stderr = true
		logger = applogger.New(logConfig)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// ExecuteContext выполняет команду и завершает процесс с кодом 1 при ошибке
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFactory() (*app.ComponentFactory, error) {
	return app.NewComponentFactory(cfg, logger)
}
