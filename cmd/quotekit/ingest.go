package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smarthealth/quotekit"
	"github.com/smarthealth/quotekit/internal/log"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var (
		envFile string
		csvPath string
		outDir  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the vector index from a CSV of historical quotes",
		Long: `Build the vector index from a CSV of historical quotes.

Each row is encoded into a profile text, embedded via the configured
EMBEDDING_ENDPOINT, and written as index artifacts (vectors.bin and
meta.json) that the serve command loads at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), envFile, csvPath, outDir, limit)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Path to the quotes CSV file (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for index artifacts (default: INDEX_DIR)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum records to ingest, 0 for all")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func runIngest(ctx context.Context, envFile, csvPath, outDir string, limit int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if outDir == "" {
		outDir = cfg.IndexDir()
	}

	logger := log.Configure(cfg)
	slogger := logger.Slog()

	client, err := quotekit.NewFromConfig(ctx, cfg, slogger)
	if err != nil {
		return fmt.Errorf("create quotekit client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close quotekit client", slog.Any("error", err))
		}
	}()

	ingestor := client.Ingestor()
	if ingestor == nil {
		return fmt.Errorf("no embedding endpoint configured: set EMBEDDING_ENDPOINT_MODEL")
	}

	stats, err := ingestor.IngestCSV(ctx, csvPath, outDir, limit)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("indexed %d records (dimension %d) into %s\n",
		stats.Records, stats.Dimension, stats.IndexDir)
	return nil
}
