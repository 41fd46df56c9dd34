// Package config loads the daemon configuration from a YAML file and
// VOICEMESH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/voicemesh/logging"
)

const (
	defaultListen          = ":8000"
	defaultShutdownTimeout = 10 * time.Second
	defaultProvider        = ProviderOpenAI
	defaultBackend         = BackendMemory
	defaultWorkers         = 4
	defaultQueue           = 64
	defaultSaveTimeout     = 30 * time.Second
	defaultMaxDepth        = 3
	defaultAPITimeout      = 10 * time.Second
	defaultAPIRate         = 5
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Memory backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the complete daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Memory  MemoryConfig  `yaml:"memory"`
	BizAPI  BizAPIConfig  `yaml:"bizapi"`
	Agents  AgentsConfig  `yaml:"agents"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the websocket listener.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig selects the model provider.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// MemoryConfig selects the long-term memory backend and sizes the saver.
type MemoryConfig struct {
	Backend         string        `yaml:"backend"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	MongoURI        string        `yaml:"mongo_uri"`
	MongoDatabase   string        `yaml:"mongo_database"`
	MongoCollection string        `yaml:"mongo_collection"`
	Workers         int           `yaml:"workers"`
	Queue           int           `yaml:"queue"`
	SaveTimeout     time.Duration `yaml:"save_timeout"`
	// RewriteQueries enables model-based query rewriting before recall.
	RewriteQueries bool `yaml:"rewrite_queries"`
}

// BizAPIConfig points at the business endpoints.
type BizAPIConfig struct {
	BookReadingURL string        `yaml:"book_reading_url"`
	ResourceURL    string        `yaml:"resource_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
	Burst          int           `yaml:"burst"`
}

// AgentsConfig tunes the agents.
type AgentsConfig struct {
	// Enabled restricts the agent set. Empty enables every agent.
	Enabled              []string `yaml:"enabled"`
	MaxContinuationDepth int      `yaml:"max_continuation_depth"`
	FallbackText         string   `yaml:"fallback_text"`
	OuterPrompt          string   `yaml:"outer_prompt"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: defaultListen, ShutdownTimeout: defaultShutdownTimeout},
		Model:  ModelConfig{Provider: defaultProvider, Temperature: 0.7},
		Memory: MemoryConfig{
			Backend:         defaultBackend,
			MongoDatabase:   "voicemesh",
			MongoCollection: "agent_memory",
			Workers:         defaultWorkers,
			Queue:           defaultQueue,
			SaveTimeout:     defaultSaveTimeout,
		},
		BizAPI:  BizAPIConfig{Timeout: defaultAPITimeout, RateLimit: defaultAPIRate, Burst: defaultAPIRate},
		Agents:  AgentsConfig{MaxContinuationDepth: defaultMaxDepth},
		Logging: LoggingConfig{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("VOICEMESH_LISTEN", &cfg.Server.Listen)
	str("VOICEMESH_MODEL_PROVIDER", &cfg.Model.Provider)
	str("VOICEMESH_MODEL_NAME", &cfg.Model.Name)
	str("VOICEMESH_MODEL_API_KEY", &cfg.Model.APIKey)
	str("VOICEMESH_MODEL_BASE_URL", &cfg.Model.BaseURL)
	str("VOICEMESH_MEMORY_BACKEND", &cfg.Memory.Backend)
	str("VOICEMESH_PG_DSN", &cfg.Memory.PostgresDSN)
	str("VOICEMESH_MONGO_URI", &cfg.Memory.MongoURI)
	str("VOICEMESH_BIZAPI_URL", &cfg.BizAPI.BookReadingURL)
	str("VOICEMESH_BIZAPI_RESOURCE_URL", &cfg.BizAPI.ResourceURL)
	str("VOICEMESH_LOG_LEVEL", &cfg.Logging.Level)
	str("VOICEMESH_LOG_FORMAT", &cfg.Logging.Format)

	if v := strings.TrimSpace(getenv("VOICEMESH_BIZAPI_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse VOICEMESH_BIZAPI_TIMEOUT: %w", err)
		}

		cfg.BizAPI.Timeout = d
	}

	if v := strings.TrimSpace(getenv("VOICEMESH_MAX_CONTINUATION_DEPTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse VOICEMESH_MAX_CONTINUATION_DEPTH: %w", err)
		}

		cfg.Agents.MaxContinuationDepth = n
	}

	if v := strings.TrimSpace(getenv("VOICEMESH_AGENTS")); v != "" {
		cfg.Agents.Enabled = strings.Split(v, ",")
		for i := range cfg.Agents.Enabled {
			cfg.Agents.Enabled[i] = strings.TrimSpace(cfg.Agents.Enabled[i])
		}
	}

	return nil
}

// Validate checks enumerations, backend requirements and sizes.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not one of openai, anthropic", c.Model.Provider))
	}

	switch c.Memory.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Memory.PostgresDSN == "" {
			errs = append(errs, errors.New("memory.postgres_dsn is required for the postgres backend"))
		}
	case BackendMongo:
		if c.Memory.MongoURI == "" {
			errs = append(errs, errors.New("memory.mongo_uri is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("memory.backend %q is not one of memory, postgres, mongo", c.Memory.Backend))
	}

	if c.Memory.Workers <= 0 || c.Memory.Queue <= 0 {
		errs = append(errs, errors.New("memory.workers and memory.queue must be > 0"))
	}

	if c.BizAPI.Timeout <= 0 {
		errs = append(errs, errors.New("bizapi.timeout must be > 0"))
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of json, text", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// AgentEnabled reports whether the named agent should be loaded.
func (c Config) AgentEnabled(name string) bool {
	if len(c.Agents.Enabled) == 0 {
		return true
	}

	return slices.Contains(c.Agents.Enabled, name)
}

// LoggerConfig converts the logging section.
func (c Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLevel(c.Logging.Level)
	cfg.Format = c.Logging.Format

	return cfg
}
