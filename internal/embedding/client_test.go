package embedding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_ReturnsVectorFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{0.1, 0.2, 0.3}, "index": 0, "object": "embedding"},
			},
			"model": "text-embedding-3-small",
			"object": "list",
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/embeddings", "test-key", "text-embedding-3-small")

	vector, err := c.Embed(t.Context(), "a tool that does things")
	require.NoError(t, err)
	require.Len(t, vector, 3)
	assert.InDelta(t, 0.1, vector[0], 1e-9)
}

func TestEmbed_ErrorsOnEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}, "model": "m", "object": "list"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/embeddings", "test-key", "m")

	_, err := c.Embed(t.Context(), "text")
	assert.Error(t, err)
}
