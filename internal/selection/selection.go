// Package selection implements the scheduler's search operation: scroll a
// batch's indexed tools, cluster them by semantic similarity, filter out
// unhealthy providers, and pick the fastest survivor per cluster.
package selection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"mcp-scheduler/internal/schedulererr"
	"mcp-scheduler/internal/state"
	"mcp-scheduler/internal/vectorindex"
	"mcp-scheduler/pkg/logging"
)

// callLogReader is the slice of *calllog.Store the selection engine needs,
// narrowed to an interface so it can be exercised with a fake in tests.
type callLogReader interface {
	RecentErrorCount(ctx context.Context, toolName, mcpURL string, window time.Duration) (int, error)
	RecentMeanLatency(ctx context.Context, toolName, mcpURL string, limit int) (float64, int, error)
}

// vectorIndexReader is the slice of *vectorindex.Gateway the selection
// engine needs, narrowed to an interface so it can be exercised with a
// fake in tests.
type vectorIndexReader interface {
	ScrollByURLs(ctx context.Context, urls []string) ([]vectorindex.Point, error)
}

// Tuning constants, per the scheduler's specification.
const (
	ClusterSimilarityThreshold = 0.75
	ErrorWindow                = 10 * time.Minute
	ErrorThreshold             = 5
	MaxToolCallLogs            = 3
)

// ToolResult is one chosen provider for a semantic cluster of tools.
type ToolResult struct {
	Name   string `json:"name"`
	MCPURL string `json:"mcp_url"`
}

// Engine answers search requests.
type Engine struct {
	store   *state.Store
	index   vectorIndexReader
	callLog callLogReader
}

// New builds an Engine.
func New(store *state.Store, index vectorIndexReader, callLog callLogReader) *Engine {
	return &Engine{store: store, index: index, callLog: callLog}
}

// Search returns the fastest healthy tool per semantic cluster exposed by
// batchID.
func (e *Engine) Search(ctx context.Context, batchID string) ([]ToolResult, error) {
	urls, ok := e.store.BatchURLs(batchID)
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", schedulererr.ErrNotFound, batchID)
	}

	points, err := e.index.ScrollByURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schedulererr.ErrVectorIndex, err)
	}

	// Sort for deterministic clustering, per the scheduler's documented
	// escape hatch for order-sensitive single-link clustering.
	sort.Slice(points, func(i, j int) bool {
		if points[i].MCPURL != points[j].MCPURL {
			return points[i].MCPURL < points[j].MCPURL
		}
		return points[i].Name < points[j].Name
	})

	clusters := cluster(points, ClusterSimilarityThreshold)

	results := make([]ToolResult, len(clusters))
	var wg sync.WaitGroup
	for i, c := range clusters {
		wg.Add(1)
		go func(i int, c []vectorindex.Point) {
			defer wg.Done()
			results[i] = e.selectCluster(ctx, c)
		}(i, c)
	}
	wg.Wait()

	return results, nil
}

// cluster applies single-link agglomerative clustering over points in
// retrieval order: each point joins the first existing cluster containing
// a member at or above the similarity threshold, else starts a new one.
func cluster(points []vectorindex.Point, threshold float64) [][]vectorindex.Point {
	var clusters [][]vectorindex.Point

	for _, p := range points {
		joined := false
		for i, c := range clusters {
			for _, m := range c {
				if cosineSimilarity(p.Vector, m.Vector) >= threshold {
					clusters[i] = append(clusters[i], p)
					joined = true
					break
				}
			}
			if joined {
				break
			}
		}
		if !joined {
			clusters = append(clusters, []vectorindex.Point{p})
		}
	}

	return clusters
}

// cosineSimilarity returns ⟨a,b⟩ / (‖a‖·‖b‖), or 0 if either norm is zero
// or the vectors have mismatched dimensionality.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// selectCluster runs the error filter and then picks the fastest survivor,
// falling back to the full cluster if every member is unhealthy.
func (e *Engine) selectCluster(ctx context.Context, c []vectorindex.Point) ToolResult {
	healthy := make([]vectorindex.Point, 0, len(c))
	for _, p := range c {
		count, err := e.callLog.RecentErrorCount(ctx, p.Name, p.MCPURL, ErrorWindow)
		if err != nil {
			logging.Warn("Selection", "error count query failed for %s@%s, treating as healthy: %v", p.Name, p.MCPURL, err)
			count = 0
		}
		if count < ErrorThreshold {
			healthy = append(healthy, p)
		}
	}

	candidates := healthy
	if len(candidates) == 0 {
		candidates = c
	}

	return e.pickFastest(ctx, candidates)
}

// pickFastest returns the point with the lowest mean recent latency,
// defaulting unseen pairs to a score of 0.0.
func (e *Engine) pickFastest(ctx context.Context, points []vectorindex.Point) ToolResult {
	var best vectorindex.Point
	var bestScore float64
	haveBest := false

	for _, p := range points {
		mean, _, err := e.callLog.RecentMeanLatency(ctx, p.Name, p.MCPURL, MaxToolCallLogs)
		if err != nil {
			logging.Warn("Selection", "latency query failed for %s@%s, treating as 0: %v", p.Name, p.MCPURL, err)
			mean = 0
		}

		if !haveBest || lessFloat(mean, bestScore) {
			best = p
			bestScore = mean
			haveBest = true
		}
	}

	return ToolResult{Name: best.Name, MCPURL: best.MCPURL}
}

// lessFloat orders by value, breaking exact ties by bit-pattern total
// ordering so the pick is deterministic even across NaN/-0 edge cases.
func lessFloat(a, b float64) bool {
	if a != b {
		return a < b
	}
	return math.Float64bits(a) < math.Float64bits(b)
}
