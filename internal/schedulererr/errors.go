// Package schedulererr defines the domain-level error kinds the scheduler's
// HTTP handlers distinguish between when choosing a status code.
package schedulererr

import "errors"

var (
	// ErrBadInput marks a malformed or empty request (e.g. an empty URL list).
	ErrBadInput = errors.New("bad input")
	// ErrNotFound marks an unknown batch id on unregister or search.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable marks a failed MCP handshake, ping, or list_tools call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingFailure marks a failed call to the embedding provider.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrVectorIndex marks a transient vector index failure.
	ErrVectorIndex = errors.New("vector index error")
	// ErrDB marks a transient relational store failure.
	ErrDB = errors.New("db error")
)
