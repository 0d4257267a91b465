package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velofit/fitcheck/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fitcheck",
	Short: "Bicycle replacement-part compatibility checker",
	Long:  "Resolves a part description from the catalog or the product page, asks an online inference model whether it fits the given bike, and returns a structured verdict.",
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
