// Package embedding turns tool text into dense vectors via an
// OpenAI-embeddings-compatible HTTP API (OpenRouter by default).
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Client embeds text using an OpenAI-embeddings-compatible endpoint.
type Client struct {
	inner *openai.Client
	model string
}

// New builds a Client pointed at embeddingsURL (the full endpoint,
// including the trailing "/embeddings" segment) using apiKey for bearer
// auth and model as the default embedding model.
func New(embeddingsURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(embeddingsURL, "/embeddings")

	return &Client{
		inner: openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Embed returns the embedding vector for a single piece of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.inner.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding provider returned no data")
	}
	return resp.Data[0].Embedding, nil
}
