// Package main provides the entry point for the godlinear CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvisso/godlinear/cmd/godlinear/commands"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "godlinear",
		Short: "Decomposition-linear anomaly detection for multivariate time series",
		Long: `godlinear fits a lightweight decomposition-linear predictor to a
multivariate time series and flags timesteps whose reconstruction error
exceeds a calibrated threshold.

Commands:
  train     Fit a detector on a series and save the model
  detect    Score a series with a saved model`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commands.SetupLogging(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(commands.NewTrainCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
