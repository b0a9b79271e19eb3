// Package calllog persists tool-call outcomes and answers the windowed
// health and latency queries the selection engine needs.
package calllog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store owns the Postgres connection pool backing the tool_call_results table.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against databaseURL.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CheckSchema verifies the tool_call_results table exists, for use as a
// FatalStartup guard before serving traffic.
func (s *Store) CheckSchema(ctx context.Context) error {
	var regclass *string
	err := s.pool.QueryRow(ctx, "SELECT to_regclass('tool_call_results')::text").Scan(&regclass)
	if err != nil {
		return fmt.Errorf("check tool_call_results schema: %w", err)
	}
	if regclass == nil {
		return fmt.Errorf("tool_call_results table does not exist")
	}
	return nil
}

// Append records one tool-call outcome. The timestamp is supplied by the
// database's column default.
func (s *Store) Append(ctx context.Context, toolName, mcpURL string, totalTimeMS int64, isError bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tool_call_results (tool_name, mcp_url, total_time_ms, is_error) VALUES ($1, $2, $3, $4)`,
		toolName, mcpURL, totalTimeMS, isError,
	)
	if err != nil {
		return fmt.Errorf("append tool call result: %w", err)
	}
	return nil
}

// RecentErrorCount counts error rows for (toolName, mcpURL) within the
// last window.
func (s *Store) RecentErrorCount(ctx context.Context, toolName, mcpURL string, window time.Duration) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM tool_call_results
		 WHERE tool_name = $1 AND mcp_url = $2 AND is_error = true
		   AND timestamp >= now() - $3::interval`,
		toolName, mcpURL, window.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent errors: %w", err)
	}
	return count, nil
}

// RecentMeanLatency returns the mean total_time_ms over the most recent
// limit non-error rows for (toolName, mcpURL), and how many rows
// contributed. An empty result set yields (0, 0, nil).
func (s *Store) RecentMeanLatency(ctx context.Context, toolName, mcpURL string, limit int) (float64, int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT total_time_ms FROM tool_call_results
		 WHERE tool_name = $1 AND mcp_url = $2 AND is_error = false
		 ORDER BY timestamp DESC
		 LIMIT $3`,
		toolName, mcpURL, limit,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("query recent latencies: %w", err)
	}
	defer rows.Close()

	var sum int64
	var n int
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return 0, 0, fmt.Errorf("scan latency row: %w", err)
		}
		sum += ms
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("iterate latency rows: %w", err)
	}

	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}
