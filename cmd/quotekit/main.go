// Package main is the entry point for the quotekit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/smarthealth/quotekit/internal/config"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotekit",
		Short: "Quotekit health insurance quote server",
		Long:  `Quotekit prices health insurance profiles with a deterministic cost matrix, grounded by retrieval over historical quotes and optional model-generated plan summaries.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(ingestCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
