package config

import (
	"os"
	"strconv"
)

// Config is the umbrella configuration object returned by Load and threaded
// through the rest of the application, mirroring the teacher's Config
// umbrella shape but scoped to this system's registries. Its env vars are
// the exhaustive list from spec §6.
type Config struct {
	DatabaseURL string // DATABASE_URL: primary relational store URI
	PGVectorURI string // PGVECTOR_URI: vector store URI

	GraphURI      string // GRAPH_URI
	GraphUser     string // GRAPH_USER
	GraphPassword string // GRAPH_PASSWORD

	SecretSalt string // SECRET_SALT: auth token encryption salt

	Defaults *Defaults

	LLMProviders       *LLMProviderRegistry
	EmbeddingProviders *EmbeddingProviderRegistry

	Queue     *MemoryQueueConfig
	Retention *RetentionConfig
}

// Load builds a Config from environment variables. There is no YAML
// config-file layer here (unlike the teacher): this system's configuration
// surface is the closed set spec §6 enumerates, which fits comfortably as
// env vars — a file-backed registry loader would be machinery this system
// doesn't need.
func Load() (*Config, error) {
	llmProvider := &LLMProviderConfig{
		Type:                  LLMProviderTypeOpenAI,
		Model:                 getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		APIKeyEnv:             "OPENAI_API_KEY",
		BaseURL:               os.Getenv("OPENAI_BASE_URL"),
		MaxToolResultTokens:   mustAtoi(getEnvOrDefault("LLM_MAX_TOOL_RESULT_TOKENS", "4000")),
		RequestTimeoutSeconds: mustAtoi(getEnvOrDefault("LLM_REQUEST_TIMEOUT_SECONDS", "60")),
	}
	if err := validateLLMProvider(llmProvider); err != nil {
		return nil, err
	}

	embedProvider := &EmbeddingProviderConfig{
		Type:                  LLMProviderTypeOpenAI,
		Model:                 getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		APIKeyEnv:             "EMBEDDING_API_KEY",
		BaseURL:               os.Getenv("EMBEDDING_BASE_URL"),
		Dims:                  EmbeddingDims,
		RequestTimeoutSeconds: mustAtoi(getEnvOrDefault("EMBEDDING_REQUEST_TIMEOUT_SECONDS", "60")),
	}
	if err := validateEmbeddingProvider(embedProvider); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		PGVectorURI:   os.Getenv("PGVECTOR_URI"),
		GraphURI:      os.Getenv("GRAPH_URI"),
		GraphUser:     os.Getenv("GRAPH_USER"),
		GraphPassword: os.Getenv("GRAPH_PASSWORD"),
		SecretSalt:    os.Getenv("SECRET_SALT"),
		Defaults: &Defaults{
			LLMProvider:       "default",
			EmbeddingProvider: "default",
		},
		LLMProviders:       NewLLMProviderRegistry(map[string]*LLMProviderConfig{"default": llmProvider}),
		EmbeddingProviders: NewEmbeddingProviderRegistry(map[string]*EmbeddingProviderConfig{"default": embedProvider}),
		Queue:              DefaultMemoryQueueConfig(),
		Retention:          DefaultRetentionConfig(),
	}
	if v := os.Getenv("MEMORY_QUEUE_CAPACITY"); v != "" {
		cfg.Queue.Capacity = mustAtoi(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the handful of fields Load can't validate inline.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return NewValidationError("DATABASE_URL", ErrConfigMissing)
	}
	if c.PGVectorURI == "" {
		return NewValidationError("PGVECTOR_URI", ErrConfigMissing)
	}
	if c.GraphURI == "" {
		return NewValidationError("GRAPH_URI", ErrConfigMissing)
	}
	if c.SecretSalt == "" {
		return NewValidationError("SECRET_SALT", ErrConfigMissing)
	}
	return nil
}

func validateLLMProvider(c *LLMProviderConfig) error {
	if !c.Type.IsValid() {
		return NewValidationError("type", ErrInvalidValue)
	}
	if c.Model == "" {
		return NewValidationError("model", ErrConfigMissing)
	}
	if os.Getenv(c.APIKeyEnv) == "" {
		return NewValidationError(c.APIKeyEnv, ErrConfigMissing)
	}
	if c.MaxToolResultTokens < 256 {
		return NewValidationError("max_tool_result_tokens", ErrInvalidValue)
	}
	return nil
}

func validateEmbeddingProvider(c *EmbeddingProviderConfig) error {
	if !c.Type.IsValid() {
		return NewValidationError("type", ErrInvalidValue)
	}
	if os.Getenv(c.APIKeyEnv) == "" {
		return NewValidationError(c.APIKeyEnv, ErrConfigMissing)
	}
	if c.Dims <= 0 {
		return NewValidationError("dims", ErrInvalidValue)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Stats summarizes the loaded configuration for startup logging.
type Stats struct {
	LLMProviders       int
	EmbeddingProviders int
	QueueCapacity      int
}

// Stats returns a snapshot suitable for structured startup logging.
func (c *Config) Stats() Stats {
	return Stats{
		LLMProviders:       1,
		EmbeddingProviders: 1,
		QueueCapacity:      c.Queue.Capacity,
	}
}
