package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QDRANT_URL", "OPENROUTER_API_KEY", "DATABASE_URL",
		"SCHEDULER_ADDR", "EMBEDDING_MODEL", "OPENROUTER_EMBEDDINGS_URL", "SCHEDULER_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QDRANT_URL")
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	clearEnv(t)
	t.Setenv("QDRANT_URL", "http://localhost:6334")
	t.Setenv("OPENROUTER_API_KEY", "key")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultBindAddr, cfg.BindAddr)
	assert.Equal(t, defaultEmbeddingModel, cfg.EmbeddingModel)
	assert.Equal(t, defaultEmbeddingsURL, cfg.EmbeddingsURL)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
}

func TestLoad_OverridesRespected(t *testing.T) {
	clearEnv(t)
	t.Setenv("QDRANT_URL", "http://localhost:6334")
	t.Setenv("OPENROUTER_API_KEY", "key")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("SCHEDULER_ADDR", "127.0.0.1:9090")
	t.Setenv("SCHEDULER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.BindAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}
