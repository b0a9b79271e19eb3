// Package vectorindex wraps the Qdrant collection the scheduler uses to
// index tool descriptions: ensure-collection, upsert, and paginated scroll
// by URL filter.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// CollectionName is the single collection this scheduler indexes tools into.
const CollectionName = "mcp_tools"

const scrollPageLimit = 100

// Gateway owns the Qdrant client connection.
type Gateway struct {
	client *qdrant.Client
}

// Connect dials qdrantURL (host:port, gRPC) and returns a Gateway.
func Connect(qdrantURL string) (*Gateway, error) {
	host, portStr, err := net.SplitHostPort(qdrantURL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url %q: %w", qdrantURL, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant port %q: %w", portStr, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", qdrantURL, err)
	}

	return &Gateway{client: client}, nil
}

// Tool is the shape the ingestion pipeline upserts.
type Tool struct {
	Name        string
	Description string
	MCPURL      string
	InputSchema string // stringified JSON
	Vector      []float32
}

// PointID returns the deterministic UUIDv5 id for a (url, tool) pair,
// computed over NAMESPACE_URL with name "{mcp_url}:{tool_name}".
func PointID(mcpURL, toolName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(mcpURL+":"+toolName)).String()
}

// EnsureCollection creates CollectionName with the given vector dimension
// if it does not already exist. The dimension recorded is whichever call
// reaches this first; later calls with a different dim are silently
// no-ops, per the documented open question on dimension pinning.
func (g *Gateway) EnsureCollection(ctx context.Context, dim int) error {
	exists, err := g.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}

	err = g.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Upsert writes one point per tool, waiting for the operation to complete.
func (g *Gateway) Upsert(ctx context.Context, tools []Tool) error {
	if len(tools) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(tools))
	for _, t := range tools {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(t.MCPURL, t.Name)),
			Vectors: qdrant.NewVectors(t.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"mcp_url":     t.MCPURL,
				"inputSchema": t.InputSchema,
			}),
		})
	}

	wait := true
	_, err := g.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Point is a retrieved tool point, including its embedding vector.
type Point struct {
	Name        string
	Description string
	MCPURL      string
	InputSchema string
	Vector      []float32
}

// ScrollByURLs returns every point whose mcp_url payload field is one of
// urls, following Qdrant's cursor-based pagination until exhaustion.
func (g *Gateway) ScrollByURLs(ctx context.Context, urls []string) ([]Point, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchKeywords("mcp_url", urls...),
		},
	}

	withPayload := qdrant.NewWithPayload(true)
	withVectors := qdrant.NewWithVectors(true)
	limit := uint32(scrollPageLimit)

	var results []Point
	var offset *qdrant.PointId

	for {
		req := &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          &limit,
			WithPayload:    withPayload,
			WithVectors:    withVectors,
			Offset:         offset,
		}

		page, err := g.client.Scroll(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scroll points: %w", err)
		}

		for i, rp := range page {
			// The scroll offset is inclusive, so every page after the first
			// starts with the previous page's last point.
			if offset != nil && i == 0 {
				continue
			}
			results = append(results, toPoint(rp))
		}

		if len(page) < scrollPageLimit {
			break
		}
		offset = page[len(page)-1].GetId()
	}

	return results, nil
}

func toPoint(rp *qdrant.RetrievedPoint) Point {
	payload := rp.GetPayload()

	p := Point{
		Name:        payload["name"].GetStringValue(),
		Description: payload["description"].GetStringValue(),
		MCPURL:      payload["mcp_url"].GetStringValue(),
		InputSchema: payload["inputSchema"].GetStringValue(),
	}

	if vectors := rp.GetVectors(); vectors != nil {
		if v := vectors.GetVector(); v != nil {
			p.Vector = v.GetData()
		}
	}

	return p
}

// MarshalInputSchema renders an MCP tool input schema as the stringified
// JSON payload format the vector index stores.
func MarshalInputSchema(schema any) string {
	b, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(b)
}
