// Package registration implements batch registration and unregistration:
// the entry points that create and tear down MCP sessions and feed the
// ingestion pipeline.
package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"mcp-scheduler/internal/ingestion"
	"mcp-scheduler/internal/mcpsession"
	"mcp-scheduler/internal/schedulererr"
	"mcp-scheduler/internal/state"
	"mcp-scheduler/pkg/logging"
)

// sessionHandle is the slice of *mcpsession.Session the registration
// manager needs, narrowed to an interface so it can be exercised with a
// fake in tests. It is also a superset of both ingestion.ToolLister and
// state.Session, so a sessionHandle can be handed directly to either.
type sessionHandle interface {
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	Ping(ctx context.Context) error
	Close() error
}

// ingestionRunner is the slice of *ingestion.Pipeline the registration
// manager needs.
type ingestionRunner interface {
	Run(ctx context.Context, session ingestion.ToolLister, url string) error
}

type sessionFactory func(url string) sessionHandle

func defaultSessionFactory(url string) sessionHandle {
	return mcpsession.New(url)
}

// Manager owns the shared state store and the ingestion pipeline used
// during registration.
type Manager struct {
	store      *state.Store
	ingestion  ingestionRunner
	newSession sessionFactory
}

// New builds a Manager.
func New(store *state.Store, ingestion ingestionRunner) *Manager {
	return &Manager{store: store, ingestion: ingestion, newSession: defaultSessionFactory}
}

// Result summarizes a registration call.
type Result struct {
	BatchID      string
	AcceptedURLs []string
}

// Register opens (or reuses) a monitored session for every url, recording
// the URLs that were accepted under a fresh batch id; URLs whose handshake
// fails are skipped and not recorded. The MCP handshake and ingestion for
// newly-seen URLs run while holding the store's exclusive lock, per the
// scheduler's literal (non-lock-free) registration design.
func (m *Manager) Register(ctx context.Context, urls []string) (Result, error) {
	if len(urls) == 0 {
		return Result{}, fmt.Errorf("%w: empty url list", schedulererr.ErrBadInput)
	}

	batchID := uuid.NewString()
	now := time.Now()

	m.store.Lock()
	defer m.store.Unlock()

	var accepted []string
	for _, url := range urls {
		if _, exists := m.store.GetServerLocked(url); exists {
			m.store.AddBatchRefLocked(url, batchID, now)
			accepted = append(accepted, url)
			continue
		}

		session := m.newSession(url)
		if err := session.Initialize(ctx); err != nil {
			logging.Warn("Registration", "skipping %s: %v", url, err)
			continue
		}

		if err := m.ingestion.Run(ctx, session, url); err != nil {
			logging.Warn("Registration", "ingestion failed for %s (still registered): %v", url, err)
		}

		m.store.InstallServerLocked(url, batchID, now, session)
		accepted = append(accepted, url)
	}

	m.store.RecordBatchLocked(batchID, accepted)

	if len(accepted) == 0 {
		logging.Warn("Registration", "batch %s registered zero of %d url(s)", logging.TruncateID(batchID), len(urls))
	} else {
		logging.Audit(logging.AuditEvent{
			Action:  "register",
			Outcome: "success",
			BatchID: logging.TruncateID(batchID),
			Details: fmt.Sprintf("%d/%d url(s) accepted", len(accepted), len(urls)),
		})
	}

	return Result{BatchID: batchID, AcceptedURLs: accepted}, nil
}

// UnregisterResult summarizes an unregistration call.
type UnregisterResult struct {
	URLsAffected int
	URLsStopped  int
}

// Unregister removes batchID's references from every URL it registered,
// tearing down any session left with no remaining batch reference.
func (m *Manager) Unregister(batchID string) (UnregisterResult, error) {
	m.store.Lock()
	defer m.store.Unlock()

	affected, stopped, ok := m.store.RemoveBatchLocked(batchID)
	if !ok {
		return UnregisterResult{}, fmt.Errorf("%w: batch %s", schedulererr.ErrNotFound, batchID)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "unregister",
		Outcome: "success",
		BatchID: logging.TruncateID(batchID),
		Details: fmt.Sprintf("%d url(s) affected, %d stopped", len(affected), len(stopped)),
	})

	return UnregisterResult{URLsAffected: len(affected), URLsStopped: len(stopped)}, nil
}
