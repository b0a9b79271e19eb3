// Package ingestion lists tools from a live MCP session, embeds their
// descriptions, and upserts them into the vector index.
package ingestion

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-scheduler/internal/vectorindex"
	"mcp-scheduler/pkg/logging"
)

// ToolLister is the slice of *mcpsession.Session the ingestion pipeline
// needs, narrowed to an interface so it can be exercised with a fake in
// tests.
type ToolLister interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// toolEmbedder is the slice of *embedding.Client the ingestion pipeline needs.
type toolEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// vectorIndexer is the slice of *vectorindex.Gateway the ingestion pipeline needs.
type vectorIndexer interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, tools []vectorindex.Tool) error
}

// Pipeline embeds and indexes a server's tool catalog.
type Pipeline struct {
	embedder toolEmbedder
	index    vectorIndexer
}

// New builds a Pipeline.
func New(embedder toolEmbedder, index vectorIndexer) *Pipeline {
	return &Pipeline{embedder: embedder, index: index}
}

// Run lists the tools exposed by session at url, embeds their descriptions,
// and upserts the resulting points. It aborts (returning an error) if
// list_tools fails, if the first tool cannot be embedded, or if ensuring the
// collection or the upsert fails; embedding failures on later tools are
// skipped.
func (p *Pipeline) Run(ctx context.Context, session ToolLister, url string) error {
	tools, err := session.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools for %s: %w", url, err)
	}
	if len(tools) == 0 {
		return nil
	}

	points := make([]vectorindex.Tool, 0, len(tools))

	first := tools[0]
	firstVector, err := p.embedText(ctx, first)
	if err != nil {
		return fmt.Errorf("embed first tool %q for %s: %w", first.Name, url, err)
	}
	if err := p.index.EnsureCollection(ctx, len(firstVector)); err != nil {
		return fmt.Errorf("ensure collection for %s: %w", url, err)
	}
	points = append(points, toToolPoint(url, first, firstVector))

	for _, tool := range tools[1:] {
		vector, err := p.embedText(ctx, tool)
		if err != nil {
			logging.Warn("Ingestion", "skipping tool %q for %s: embedding failed: %v", tool.Name, url, err)
			continue
		}
		points = append(points, toToolPoint(url, tool, vector))
	}

	if err := p.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert points for %s: %w", url, err)
	}

	logging.Info("Ingestion", "indexed %d/%d tool(s) for %s", len(points), len(tools), url)
	return nil
}

func (p *Pipeline) embedText(ctx context.Context, tool mcp.Tool) ([]float32, error) {
	text := tool.Name
	if tool.Description != "" {
		text = fmt.Sprintf("%s: %s", tool.Name, tool.Description)
	}
	return p.embedder.Embed(ctx, text)
}

func toToolPoint(url string, tool mcp.Tool, vector []float32) vectorindex.Tool {
	return vectorindex.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		MCPURL:      url,
		InputSchema: vectorindex.MarshalInputSchema(tool.InputSchema),
		Vector:      vector,
	}
}
