// Package heartbeat runs the scheduler's background health engine: a
// periodic sweep that expires stale batch references and pings every
// still-monitored server.
package heartbeat

import (
	"context"
	"time"

	"mcp-scheduler/internal/state"
	"mcp-scheduler/pkg/logging"
)

// Default timing constants, per the scheduler's specification.
const (
	SweepInterval = 10 * time.Second
	BatchTimeout  = 600 * time.Second
)

// Engine periodically sweeps the store for expired batch references and
// pings every URL still monitored.
type Engine struct {
	store    *state.Store
	interval time.Duration
	timeout  time.Duration
}

// New builds an Engine using the scheduler's default timing constants.
func New(store *state.Store) *Engine {
	return &Engine{store: store, interval: SweepInterval, timeout: BatchTimeout}
}

// Start launches the sweep loop in its own goroutine and returns
// immediately. The loop exits when ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Engine) sweep(ctx context.Context) {
	removed, stillMonitored := e.store.SweepExpirations(time.Now(), e.timeout)

	for _, url := range removed {
		logging.Info("Heartbeat", "batch timeout: %s is no longer monitored", url)
	}

	for url, session := range stillMonitored {
		go e.ping(ctx, url, session)
	}
}

func (e *Engine) ping(ctx context.Context, url string, session state.Session) {
	start := time.Now()
	err := session.Ping(ctx)
	elapsed := time.Since(start)

	// The elapsed time is recorded whether or not the ping succeeded; a
	// failure is only logged and never evicts the server.
	if err != nil {
		logging.Warn("Heartbeat", "ping failed for %s after %s: %v", url, elapsed, err)
	}

	if ok := e.store.AppendLatency(url, elapsed); !ok {
		logging.Debug("Heartbeat", "ping finished for %s but server was removed before recording", url)
		return
	}

	if err == nil {
		logging.Debug("Heartbeat", "ping ok for %s in %s", url, elapsed)
	}
}
