package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "distress-cli",
	Short: "Financial distress scoring for nonprofit and higher-ed institutions",
	Long: "Scores institutional financial distress 0-100 from IRS 990 filings and IPEDS surveys: " +
		"calibrated indicator thresholds, weighted domain aggregation, contamination-aware solvency, " +
		"and master-table integration.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
