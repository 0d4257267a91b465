package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velofit/fitcheck/internal/pipeline"
	"github.com/velofit/fitcheck/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check <bike-info> <product-url>",
	Short: "Check whether a replacement part fits a bike",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initChecker(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		query := pipeline.Query{BikeInfo: args[0], ProductURL: args[1]}

		start := time.Now()
		result, err := env.Checker.Check(ctx, query)
		elapsed := time.Since(start)

		if env.Store != nil {
			run := store.CheckRun{
				BikeInfo:   query.BikeInfo,
				ProductURL: query.ProductURL,
				ProductKey: query.ProductKey(),
				DurationMS: elapsed.Milliseconds(),
			}
			if result != nil {
				run.ProductH1 = result.ProductH1
				run.Compatibility = string(result.Verdict.Compatibility)
				run.Confidence = string(result.Verdict.Confidence)
				run.Argument = result.Verdict.Argument
			}
			if err != nil {
				run.Error = err.Error()
			}
			if saveErr := env.Store.SaveCheck(ctx, run); saveErr != nil {
				zap.L().Warn("audit save failed", zap.Error(saveErr))
			}
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
