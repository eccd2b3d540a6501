package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration. Field names map to
// environment variables directly; nested structs use underscore delimiters
// (e.g. EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8000)
	Port int `envconfig:"PORT" default:"8000"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.quotekit
	DataDir string `envconfig:"DATA_DIR"`

	// IndexDir is the directory holding the index artifacts.
	// Env: INDEX_DIR
	// Default: {data_dir}/index
	IndexDir string `envconfig:"INDEX_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/quotekit.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// CostFactorsPath points to an optional YAML file overriding the
	// built-in pricing factors.
	// Env: COST_FACTORS_PATH
	CostFactorsPath string `envconfig:"COST_FACTORS_PATH"`

	// SearchLimit is the number of similar profiles retrieved per quote.
	// Env: SEARCH_LIMIT (default: 3)
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"3"`

	// ReconcileTotals controls whether generated premium amounts are
	// replaced by the deterministic calculation when they disagree.
	// Env: RECONCILE_TOTALS (default: true)
	ReconcileTotals bool `envconfig:"RECONCILE_TOTALS" default:"true"`

	// EmbeddingEndpoint configures the embedding model endpoint.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// GenerationEndpoint configures the plan generation model endpoint.
	GenerationEndpoint EndpointEnv `envconfig:"GENERATION_ENDPOINT"`
}

// EndpointEnv holds environment configuration for a model endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g., text-embedding-3-small).
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: *_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: *_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: *_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// MaxTokens is the maximum token limit for generation.
	// Env: *_MAX_TOKENS (default: 1024)
	MaxTokens int `envconfig:"MAX_TOKENS" default:"1024"`

	// BatchSize is the maximum texts per embedding request.
	// Env: *_BATCH_SIZE (default: 32)
	BatchSize int `envconfig:"BATCH_SIZE" default:"32"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.IndexDir != "" {
		cfg = cfg.Apply(WithIndexDir(e.IndexDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.CostFactorsPath != "" {
		cfg = cfg.Apply(WithCostFactorsPath(e.CostFactorsPath))
	}
	if e.SearchLimit > 0 {
		cfg = cfg.Apply(WithSearchLimit(e.SearchLimit))
	}
	cfg = cfg.Apply(WithReconcileTotals(e.ReconcileTotals))

	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = cfg.Apply(WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}
	if e.GenerationEndpoint.IsConfigured() {
		cfg = cfg.Apply(WithGenerationEndpoint(e.GenerationEndpoint.ToEndpoint()))
	}

	return cfg
}

// IsConfigured returns true if the endpoint has a model configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second))),
		WithBackoffFactor(e.BackoffFactor),
		WithMaxTokens(e.MaxTokens),
		WithBatchSize(e.BatchSize),
	}

	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}

	return NewEndpointWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
