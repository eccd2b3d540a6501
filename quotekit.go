// Package quotekit provides a retrieval-grounded health insurance premium
// estimation engine. A Client combines a deterministic cost calculator, a
// vector index of historical quote profiles, and optional model endpoints
// for embedding and plan generation.
package quotekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/smarthealth/quotekit/application/service"
	"github.com/smarthealth/quotekit/domain/pricing"
	"github.com/smarthealth/quotekit/domain/search"
	"github.com/smarthealth/quotekit/infrastructure/persistence"
	"github.com/smarthealth/quotekit/infrastructure/provider"
	vecsearch "github.com/smarthealth/quotekit/infrastructure/search"
	"github.com/smarthealth/quotekit/internal/config"
	"github.com/smarthealth/quotekit/internal/database"
	"github.com/smarthealth/quotekit/internal/log"
)

// ErrClientClosed is returned when operations are attempted on a closed
// client.
var ErrClientClosed = errors.New("client is closed")

// Client is the main entry point.
type Client struct {
	// Quotes prices profiles against the calculator and the index.
	Quotes *service.QuoteService

	cfg    *clientConfig
	logger *slog.Logger
	index  *vecsearch.Handle
	ingest *service.Ingestion
	db     *database.Database
	store  *persistence.QuoteStore

	mu     sync.Mutex
	closed bool
}

// New creates a Client with the given options.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.Default().Slog()
	}

	indexDir := cfg.indexDir
	if indexDir == "" {
		indexDir = filepath.Join(cfg.dataDir, config.DefaultIndexSubdir)
	}

	calc, err := buildCalculator(cfg)
	if err != nil {
		return nil, err
	}

	index := loadIndex(indexDir, logger)

	c := &Client{
		cfg:    cfg,
		logger: logger,
		index:  index,
	}

	if cfg.dbURL != "" {
		db, err := database.NewDatabase(ctx, cfg.dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		store, err := persistence.NewQuoteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize quote store: %w", err)
		}
		c.db = db
		c.store = store
	}

	svcOpts := []service.QuoteServiceOption{
		service.WithSearchLimit(cfg.searchLimit),
		service.WithReconcileTotals(cfg.reconcileTotals),
		service.WithLogger(log.FromSlog(logger)),
	}
	if c.store != nil {
		svcOpts = append(svcOpts, service.WithQuoteStore(c.store))
	}

	var embedder search.Embedder
	if cfg.embeddingProvider != nil {
		embedder = &embeddingAdapter{inner: cfg.embeddingProvider}
		svcOpts = append(svcOpts, service.WithEmbedder(embedder))
	} else {
		logger.Warn("no embedding provider configured, retrieval disabled")
	}
	if cfg.generationProvider != nil {
		maxTokens := cfg.genMaxTokens
		if maxTokens <= 0 {
			maxTokens = config.DefaultEndpointMaxTokens
		}
		svcOpts = append(svcOpts, service.WithGenerator(&generationAdapter{
			inner:     cfg.generationProvider,
			maxTokens: maxTokens,
		}))
	}

	c.Quotes = service.NewQuoteService(calc, index, svcOpts...)

	if embedder != nil {
		ingestOpts := []service.IngestionOption{
			service.WithIngestLogger(log.FromSlog(logger)),
		}
		if cfg.embedBatchSize > 0 {
			ingestOpts = append(ingestOpts, service.WithIngestBatchSize(cfg.embedBatchSize))
		}
		c.ingest = service.NewIngestion(embedder, ingestOpts...)
	}

	return c, nil
}

// NewFromConfig creates a Client from application configuration, wiring the
// endpoints, index directory, and audit database it describes.
func NewFromConfig(ctx context.Context, appCfg config.AppConfig, logger *slog.Logger) (*Client, error) {
	opts := []Option{
		WithDataDir(appCfg.DataDir()),
		WithIndexDir(appCfg.IndexDir()),
		WithDatabaseURL(appCfg.DBURL()),
		WithSearchLimit(appCfg.SearchLimit()),
		WithReconcileTotals(appCfg.ReconcileTotals()),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	if appCfg.CostFactorsPath() != "" {
		opts = append(opts, WithCostFactorsPath(appCfg.CostFactorsPath()))
	}
	if ep := appCfg.EmbeddingEndpoint(); ep != nil && ep.IsConfigured() {
		p := provider.NewOpenAIProvider(endpointProviderConfig(*ep, true))
		opts = append(opts,
			WithEmbeddingProvider(p),
			WithEmbeddingBatchSize(ep.BatchSize()),
			func(c *clientConfig) { c.providerClosers = append(c.providerClosers, p) })
	}
	if ep := appCfg.GenerationEndpoint(); ep != nil && ep.IsConfigured() {
		p := provider.NewOpenAIProvider(endpointProviderConfig(*ep, false))
		opts = append(opts,
			WithGenerationProvider(p),
			WithGenerationMaxTokens(ep.MaxTokens()),
			func(c *clientConfig) { c.providerClosers = append(c.providerClosers, p) })
	}
	return New(ctx, opts...)
}

func endpointProviderConfig(ep config.Endpoint, embedding bool) provider.OpenAIConfig {
	cfg := provider.OpenAIConfig{
		APIKey:        ep.APIKey(),
		BaseURL:       ep.BaseURL(),
		Timeout:       ep.Timeout(),
		MaxRetries:    ep.MaxRetries(),
		InitialDelay:  ep.InitialDelay(),
		BackoffFactor: ep.BackoffFactor(),
	}
	if embedding {
		cfg.EmbeddingModel = ep.Model()
	} else {
		cfg.ChatModel = ep.Model()
	}
	return cfg
}

func buildCalculator(cfg *clientConfig) (pricing.Calculator, error) {
	if cfg.costFactors != nil {
		return pricing.NewCalculator(*cfg.costFactors)
	}
	if cfg.costFactorsPath != "" {
		factors, err := pricing.LoadFactors(cfg.costFactorsPath)
		if err != nil {
			return pricing.Calculator{}, fmt.Errorf("failed to load cost factors: %w", err)
		}
		return pricing.NewCalculator(factors)
	}
	return pricing.DefaultCalculator(), nil
}

// loadIndex reads the index artifacts if present. A missing or unreadable
// index is not fatal: quotes fall back to the deterministic calculation and
// the client reports degraded results until an index is published.
func loadIndex(dir string, logger *slog.Logger) *vecsearch.Handle {
	idx, err := vecsearch.LoadFlatIndex(dir)
	switch {
	case errors.Is(err, search.ErrIndexNotFound):
		logger.Warn("index artifacts not found, serving deterministic quotes only",
			"index_dir", dir)
		return vecsearch.NewHandle(nil)
	case err != nil:
		logger.Error("failed to load index, serving deterministic quotes only",
			"index_dir", dir, "error", err)
		return vecsearch.NewHandle(nil)
	}
	stats := idx.Stats()
	logger.Info("index loaded",
		"index_dir", dir,
		"records", stats.Count(),
		"dimension", stats.Dimension())
	return vecsearch.NewHandle(idx)
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Store returns the quote audit store, or nil when no database is
// configured.
func (c *Client) Store() *persistence.QuoteStore {
	return c.store
}

// Index returns the handle to the published vector index.
func (c *Client) Index() *vecsearch.Handle {
	return c.index
}

// Ingestor returns the ingestion service, or nil when no embedding provider
// is configured.
func (c *Client) Ingestor() *service.Ingestion {
	return c.ingest
}

// ReloadIndex loads the index artifacts from dir and publishes them to
// in-flight readers.
func (c *Client) ReloadIndex(dir string) error {
	idx, err := vecsearch.LoadFlatIndex(dir)
	if err != nil {
		return err
	}
	c.index.Publish(idx)
	stats := idx.Stats()
	c.logger.Info("index reloaded",
		"index_dir", dir,
		"records", stats.Count(),
		"dimension", stats.Dimension())
	return nil
}

// Close releases database connections and provider clients. It is safe to
// call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.closed = true

	var errs []error
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	for _, closer := range c.cfg.providerClosers {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// embeddingAdapter adapts a provider.Embedder to the search.Embedder
// interface used by the quote and ingestion services.
type embeddingAdapter struct {
	inner provider.Embedder
}

func (a *embeddingAdapter) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := a.inner.Embed(ctx, provider.NewEmbeddingRequest(texts))
	if err != nil {
		return nil, err
	}
	return resp.Embeddings(), nil
}

// generationAdapter adapts a provider.TextGenerator to the service.Generator
// interface.
type generationAdapter struct {
	inner     provider.TextGenerator
	maxTokens int
}

func (a *generationAdapter) Generate(ctx context.Context, system, user string) (string, error) {
	req := provider.NewChatCompletionRequest([]provider.Message{
		provider.SystemMessage(system),
		provider.UserMessage(user),
	}).WithMaxTokens(a.maxTokens)
	resp, err := a.inner.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}
