// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8000
	DefaultLogLevel              = "INFO"
	DefaultSearchLimit           = 3
	DefaultIndexSubdir           = "index"
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEndpointMaxTokens     = 1024
	DefaultEndpointBatchSize     = 32
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures an OpenAI-compatible model endpoint.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	maxTokens     int
	batchSize     int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
		maxTokens:     DefaultEndpointMaxTokens,
		batchSize:     DefaultEndpointBatchSize,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MaxTokens returns the maximum token limit for generation.
func (e Endpoint) MaxTokens() int { return e.maxTokens }

// BatchSize returns the maximum texts per embedding request.
func (e Endpoint) BatchSize() int { return e.batchSize }

// IsConfigured returns true if the endpoint has a model set.
func (e Endpoint) IsConfigured() bool { return e.model != "" }

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMaxTokens sets the maximum token limit.
func WithMaxTokens(n int) EndpointOption {
	return func(e *Endpoint) { e.maxTokens = n }
}

// WithBatchSize sets the maximum texts per embedding request.
func WithBatchSize(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host               string
	port               int
	dataDir            string
	indexDir           string
	dbURL              string
	logLevel           string
	logFormat          LogFormat
	costFactorsPath    string
	searchLimit        int
	reconcileTotals    bool
	embeddingEndpoint  *Endpoint
	generationEndpoint *Endpoint
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quotekit"
	}
	return filepath.Join(home, ".quotekit")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:            DefaultHost,
		port:            DefaultPort,
		dataDir:         dataDir,
		indexDir:        filepath.Join(dataDir, DefaultIndexSubdir),
		dbURL:           "sqlite:///" + filepath.Join(dataDir, "quotekit.db"),
		logLevel:        DefaultLogLevel,
		logFormat:       LogFormatPretty,
		searchLimit:     DefaultSearchLimit,
		reconcileTotals: true,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// IndexDir returns the directory holding the index artifacts.
func (c AppConfig) IndexDir() string { return c.indexDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// CostFactorsPath returns the optional YAML override for pricing factors.
func (c AppConfig) CostFactorsPath() string { return c.costFactorsPath }

// SearchLimit returns the number of similar profiles retrieved per quote.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// ReconcileTotals returns whether generated premium amounts are replaced by
// the deterministic calculation when they disagree.
func (c AppConfig) ReconcileTotals() bool { return c.reconcileTotals }

// EmbeddingEndpoint returns the embedding endpoint config.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// GenerationEndpoint returns the plan generation endpoint config.
func (c AppConfig) GenerationEndpoint() *Endpoint { return c.generationEndpoint }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory and rebases the default database URL
// and index directory when they have not been overridden.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		oldDataDir := c.dataDir
		c.dataDir = dir
		if c.indexDir == filepath.Join(oldDataDir, DefaultIndexSubdir) {
			c.indexDir = filepath.Join(dir, DefaultIndexSubdir)
		}
		if c.dbURL == "sqlite:///"+filepath.Join(oldDataDir, "quotekit.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "quotekit.db")
		}
	}
}

// WithIndexDir sets the index artifact directory.
func WithIndexDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.indexDir = dir }
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithCostFactorsPath sets the YAML override path for pricing factors.
func WithCostFactorsPath(path string) AppConfigOption {
	return func(c *AppConfig) { c.costFactorsPath = path }
}

// WithSearchLimit sets the retrieval result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithReconcileTotals sets whether generated totals are reconciled.
func WithReconcileTotals(reconcile bool) AppConfigOption {
	return func(c *AppConfig) { c.reconcileTotals = reconcile }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithGenerationEndpoint sets the plan generation endpoint.
func WithGenerationEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.generationEndpoint = &e }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values are masked.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("index_dir", c.indexDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_model", endpointModel(c.embeddingEndpoint)),
		slog.String("generation_model", endpointModel(c.generationEndpoint)),
		slog.Int("search_limit", c.searchLimit),
		slog.Bool("reconcile_totals", c.reconcileTotals),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}

func endpointModel(e *Endpoint) string {
	if e == nil {
		return "(not configured)"
	}
	return e.Model()
}
