// Package config loads and validates the memory engine's configuration:
// a YAML file read via gopkg.in/yaml.v3, overridable by environment
// variables, validated before being handed to the component wiring in
// cmd/memoryd.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDurableMaxConnections = 10
	defaultQueueWorkers          = 4
	defaultEmbeddingProvider     = "local"
	defaultEmbeddingEndpoint     = "http://localhost:8081"
)

var supportedEmbeddingProviders = map[string]bool{
	"local":       true,
	"openai":      true,
	"huggingface": true,
}

// ServerConfig holds the ports the engine's own health/metrics endpoints
// bind to.
type ServerConfig struct {
	WebhookPort string `yaml:"webhook_port"`
	MetricsPort string `yaml:"metrics_port"`
}

// DurableConfig configures the Postgres-backed durable store (C2).
type DurableConfig struct {
	DSN            string        `yaml:"dsn"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// CacheConfig configures the Redis-backed cache store (C3).
type CacheConfig struct {
	Addr    string        `yaml:"addr"`
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// StorageConfig groups the dual-backend storage settings.
type StorageConfig struct {
	Durable DurableConfig `yaml:"durable"`
	Cache   CacheConfig   `yaml:"cache"`
}

// QueueConfig configures the pattern extraction queue (C12).
type QueueConfig struct {
	Workers      int           `yaml:"workers"`
	MaxQueueSize int           `yaml:"max_queue_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LearningConfig groups the learning-pipeline settings.
type LearningConfig struct {
	Queue QueueConfig `yaml:"queue"`
}

// IndexConfig configures the spatiotemporal index and hybrid search (C9, C10).
type IndexConfig struct {
	DefaultLimit int     `yaml:"default_limit"`
	VectorWeight float64 `yaml:"vector_weight"`
	FTSWeight    float64 `yaml:"fts_weight"`
}

// EmbeddingConfig configures the embedding provider adapter.
type EmbeddingConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
	Provider   string        `yaml:"provider"`
	Dimensions int           `yaml:"dimensions"`
}

// LoggingConfig configures the logrus-backed structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level configuration for cmd/memoryd.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Learning  LearningConfig  `yaml:"learning"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Load reads, parses, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := loadFromEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Storage.Durable.MaxConnections == 0 {
		config.Storage.Durable.MaxConnections = defaultDurableMaxConnections
	}
	if config.Learning.Queue.Workers == 0 {
		config.Learning.Queue.Workers = defaultQueueWorkers
	}
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = defaultEmbeddingProvider
	}
}

func validate(config *Config) error {
	if !supportedEmbeddingProviders[config.Embedding.Provider] {
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}

	if config.Embedding.Endpoint == "" {
		config.Embedding.Endpoint = defaultEmbeddingEndpoint
	}

	if config.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required for %s provider", config.Embedding.Provider)
	}

	if config.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding dimensions must be greater than or equal to 0")
	}

	if config.Storage.Durable.DSN == "" {
		return fmt.Errorf("durable storage DSN is required")
	}

	if config.Learning.Queue.Workers <= 0 {
		return fmt.Errorf("queue workers must be greater than 0")
	}

	return nil
}

func loadFromEnv(config *Config) error {
	if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
		config.Embedding.Endpoint = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		config.Embedding.Model = v
	}
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		config.Embedding.Provider = v
	}
	if v := os.Getenv("STORAGE_DURABLE_DSN"); v != "" {
		config.Storage.Durable.DSN = v
	}
	if v := os.Getenv("STORAGE_CACHE_ADDR"); v != "" {
		config.Storage.Cache.Addr = v
	}
	if v := os.Getenv("WEBHOOK_PORT"); v != "" {
		config.Server.WebhookPort = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		config.Server.MetricsPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_ENABLED value: %w", err)
		}
		config.Storage.Cache.Enabled = enabled
	}
	return nil
}
