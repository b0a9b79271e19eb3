package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-scheduler/internal/state"
)

type fakeSession struct {
	mu      sync.Mutex
	pingErr error
	pings   int
	closed  bool
}

func (f *fakeSession) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestSweep_RemovesExpiredBatchesOnly(t *testing.T) {
	store := state.New()
	base := time.Now()

	stale := &fakeSession{}
	fresh := &fakeSession{}

	store.Lock()
	store.InstallServerLocked("http://stale", "b1", base.Add(-20*time.Minute), stale)
	store.RecordBatchLocked("b1", []string{"http://stale"})
	store.InstallServerLocked("http://fresh", "b2", base, fresh)
	store.RecordBatchLocked("b2", []string{"http://fresh"})
	store.Unlock()

	eng := &Engine{store: store, interval: SweepInterval, timeout: 10 * time.Minute}
	eng.sweep(context.Background())

	// sweep spawns ping goroutines; give them a moment to run.
	require.Eventually(t, func() bool {
		stale.mu.Lock()
		defer stale.mu.Unlock()
		fresh.mu.Lock()
		defer fresh.mu.Unlock()
		return stale.closed && fresh.pings == 1
	}, time.Second, 10*time.Millisecond)

	assert.True(t, stale.closed)
	assert.False(t, fresh.closed)
}

func TestPing_FailureRecordsLatencyWithoutEvicting(t *testing.T) {
	store := state.New()
	sess := &fakeSession{pingErr: errors.New("timeout")}

	store.Lock()
	store.InstallServerLocked("http://a", "b1", time.Now(), sess)
	store.Unlock()

	eng := &Engine{store: store, interval: SweepInterval, timeout: BatchTimeout}
	eng.ping(context.Background(), "http://a", sess)

	snaps := store.Metrics([]string{"http://a"})
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Monitored, "a failed ping must not evict the server")
	assert.Equal(t, 1, snaps[0].SampleCount, "a failed ping still records its elapsed time")
}

func TestPing_SuccessRecordsLatency(t *testing.T) {
	store := state.New()
	sess := &fakeSession{}

	store.Lock()
	store.InstallServerLocked("http://a", "b1", time.Now(), sess)
	store.Unlock()

	eng := &Engine{store: store, interval: SweepInterval, timeout: BatchTimeout}
	eng.ping(context.Background(), "http://a", sess)

	snaps := store.Metrics([]string{"http://a"})
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].SampleCount)
}
