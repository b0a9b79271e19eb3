// Package mcpsession wraps a single MCP streamable-HTTP client connection,
// exposing only the operations the scheduler needs: handshake, list tools,
// and ping.
package mcpsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"mcp-scheduler/pkg/logging"
)

const (
	clientName    = "heartbeat-monitor"
	clientVersion = "0.1.0"
	protocolVersion = "2024-11-05"
)

// Session is a live MCP protocol connection to a single upstream URL,
// shared between registration, heartbeat, and any in-flight ping.
// The zero value is not usable; construct with New.
type Session struct {
	url string

	mu        sync.RWMutex
	client    client.MCPClient
	connected bool
}

// New creates a Session targeting url. Initialize must be called before
// any other method.
func New(url string) *Session {
	return &Session{url: url}
}

// Initialize performs the MCP handshake over a streamable-HTTP transport.
// It is a no-op if already connected.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	mcpClient, err := client.NewStreamableHttpClient(s.url)
	if err != nil {
		return fmt.Errorf("create streamable-http client: %w", err)
	}

	initResult, err := mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("mcp handshake failed for %s: %w", s.url, err)
	}

	s.client = mcpClient
	s.connected = true

	logging.Debug("MCPSession", "handshake complete for %s (server %s %s)",
		s.url, initResult.ServerInfo.Name, initResult.ServerInfo.Version)

	return nil
}

func (s *Session) checkConnected() error {
	if !s.connected || s.client == nil {
		return fmt.Errorf("session for %s is not connected", s.url)
	}
	return nil
}

// ListTools returns the upstream server's current tool catalog.
func (s *Session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", s.url, err)
	}
	return result.Tools, nil
}

// Ping sends a single MCP ping request. The caller is responsible for
// timing the round trip.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkConnected(); err != nil {
		return err
	}
	return s.client.Ping(ctx)
}

// Close tears down the underlying connection. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected || s.client == nil {
		return nil
	}

	err := s.client.Close()
	s.connected = false
	s.client = nil
	return err
}

// URL returns the upstream URL this session targets.
func (s *Session) URL() string {
	return s.url
}
