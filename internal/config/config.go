// Package config loads the scheduler's environment-sourced configuration.
package config

import (
	"fmt"
	"os"
)

// Config holds every value the scheduler needs at boot.
type Config struct {
	// QdrantURL is the gRPC address of the Qdrant instance backing the
	// vector index gateway.
	QdrantURL string
	// OpenRouterAPIKey authenticates embedding requests.
	OpenRouterAPIKey string
	// DatabaseURL is a Postgres connection string for the call-log store.
	DatabaseURL string

	// BindAddr is the HTTP listen address. Defaults to 0.0.0.0:4000.
	BindAddr string
	// EmbeddingModel is the model name sent to the embedding provider.
	EmbeddingModel string
	// EmbeddingsURL is the full embeddings endpoint URL.
	EmbeddingsURL string
	// LogLevel is the minimum level logged, e.g. "debug", "info", "warn", "error".
	LogLevel string
}

const (
	defaultBindAddr      = "0.0.0.0:4000"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultEmbeddingsURL  = "https://openrouter.ai/api/v1/embeddings"
	defaultLogLevel       = "info"
)

// Load reads configuration from the environment, returning an error that
// names every missing required variable. Callers should treat a non-nil
// error as FatalStartup.
func Load() (Config, error) {
	cfg := Config{
		QdrantURL:        os.Getenv("QDRANT_URL"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),

		BindAddr:       getenvDefault("SCHEDULER_ADDR", defaultBindAddr),
		EmbeddingModel: getenvDefault("EMBEDDING_MODEL", defaultEmbeddingModel),
		EmbeddingsURL:  getenvDefault("OPENROUTER_EMBEDDINGS_URL", defaultEmbeddingsURL),
		LogLevel:       getenvDefault("SCHEDULER_LOG_LEVEL", defaultLogLevel),
	}

	var missing []string
	if cfg.QdrantURL == "" {
		missing = append(missing, "QDRANT_URL")
	}
	if cfg.OpenRouterAPIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %v", missing)
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
