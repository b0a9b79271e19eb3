// Package logging provides a structured logging system for the scheduler
// built on top of Go's slog package, with a subsystem-tagged API and a
// dedicated audit trail for registration and unregistration events.
//
// # Log Levels
//   - Debug: detailed information for local development
//   - Info: general informational messages about scheduler operation
//   - Warn: recoverable problems (failed pings, skipped tool embeddings)
//   - Error: failures that abort the current operation
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("Registration", "registered %d url(s) under batch %s", n, batchID)
//	logging.Error("Heartbeat", err, "ping failed for %s", serverURL)
//
// # Subsystem Organization
//
// Logs are tagged with the subsystem that produced them:
//   - Bootstrap: process startup and configuration
//   - Registration: URL registration/unregistration
//   - MCPSession: MCP handshakes with upstream servers
//   - Heartbeat: background health monitoring
//   - Ingestion: tool discovery and embedding pipeline
//   - Selection: tool search requests
//   - HTTPAPI: request handling at the HTTP boundary
//   - AUDIT: registration and unregistration audit events (see Audit)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use from multiple
// goroutines.
package logging
