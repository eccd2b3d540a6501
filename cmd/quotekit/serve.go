package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smarthealth/quotekit"
	"github.com/smarthealth/quotekit/infrastructure/api"
	"github.com/smarthealth/quotekit/internal/config"
	"github.com/smarthealth/quotekit/internal/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                       Server host to bind to (default: 0.0.0.0)
  PORT                       Server port to listen on (default: 8000)
  DATA_DIR                   Data directory (default: ~/.quotekit)
  INDEX_DIR                  Index artifacts directory (default: {data_dir}/index)
  DB_URL                     Audit database URL (default: sqlite:///{data_dir}/quotekit.db)
  LOG_LEVEL                  Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                 Log format: pretty, json (default: pretty)
  COST_FACTORS_PATH          YAML file overriding the compiled-in cost factors
  SEARCH_LIMIT               Similar profiles retrieved per quote (default: 3)
  RECONCILE_TOTALS           Discard generated amounts that drift from the
                             deterministic baseline (default: true)

  EMBEDDING_ENDPOINT_*       Embedding model endpoint
    BASE_URL                 Base URL (e.g., https://api.openai.com/v1)
    MODEL                    Model identifier (e.g., text-embedding-3-small)
    API_KEY                  API key for authentication
    TIMEOUT                  Request timeout in seconds (default: 60)
    MAX_RETRIES              Retry attempts (default: 5)
    BATCH_SIZE               Texts per embedding request (default: 32)

  GENERATION_ENDPOINT_*      Plan generation model endpoint
    (same fields as EMBEDDING_ENDPOINT, MODEL e.g. gpt-4o-mini)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8000)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.Configure(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting quotekit", attrs...)

	client, err := quotekit.NewFromConfig(context.Background(), cfg, slogger)
	if err != nil {
		return fmt.Errorf("create quotekit client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close quotekit client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	addr := cfg.Addr()
	slogger.Info("starting server", slog.String("addr", addr))
	if err := apiServer.ListenAndServe(addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
