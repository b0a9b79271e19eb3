// Package state holds the scheduler's process-wide shared state: the map
// of monitored servers and the batch registry, guarded by a single
// readers-writer lock.
//
// Register and unregister take the lock once for their whole duration via
// Lock/Unlock and then use the *Locked methods below; the heartbeat sweep
// (SweepExpirations), latency appends and simple reads (metrics, batch
// lookup) take the lock internally.
package state

import (
	"context"
	"sync"
	"time"

	"mcp-scheduler/pkg/logging"
)

// MaxPingHistory bounds the number of recent ping durations kept per server.
const MaxPingHistory = 100

// Session is the minimal surface the store needs from a monitored
// connection: enough to ping it and tear it down between registration and
// the heartbeat sweep, without this package depending on mcpsession.
type Session interface {
	Ping(ctx context.Context) error
	Close() error
}

// ServerStatus is the live state for one monitored upstream URL.
type ServerStatus struct {
	Session Session

	// ActiveBatches maps a batch id to the time it registered this URL.
	// A ServerStatus exists in the Store iff this map is non-empty.
	ActiveBatches map[string]time.Time

	// LatencyHistory is a FIFO-bounded sequence of recent ping durations.
	LatencyHistory []time.Duration
}

func newServerStatus(session Session) *ServerStatus {
	return &ServerStatus{
		Session:       session,
		ActiveBatches: make(map[string]time.Time),
	}
}

func (s *ServerStatus) appendLatency(d time.Duration) {
	s.LatencyHistory = append(s.LatencyHistory, d)
	if len(s.LatencyHistory) > MaxPingHistory {
		s.LatencyHistory = s.LatencyHistory[len(s.LatencyHistory)-MaxPingHistory:]
	}
}

func (s *ServerStatus) averageMS() float64 {
	if len(s.LatencyHistory) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.LatencyHistory {
		total += d
	}
	return float64(total.Milliseconds()) / float64(len(s.LatencyHistory))
}

// MetricSnapshot is a point-in-time read of a server's latency history.
type MetricSnapshot struct {
	URL              string
	Monitored        bool
	AverageLatencyMS float64
	SampleCount      int
}

// Store is the scheduler's process-wide shared state.
type Store struct {
	mu sync.RWMutex

	servers map[string]*ServerStatus
	batches map[string]map[string]struct{} // batchID -> set of URLs
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		servers: make(map[string]*ServerStatus),
		batches: make(map[string]map[string]struct{}),
	}
}

// Lock acquires the exclusive (writer) lock. Callers performing a composite
// operation (register, unregister) must call Unlock when done.
func (st *Store) Lock() { st.mu.Lock() }

// Unlock releases the exclusive lock acquired by Lock.
func (st *Store) Unlock() { st.mu.Unlock() }

// GetServerLocked returns the ServerStatus for url. Caller must hold the lock.
func (st *Store) GetServerLocked(url string) (*ServerStatus, bool) {
	status, ok := st.servers[url]
	return status, ok
}

// InstallServerLocked installs a brand-new ServerStatus for url with a single
// initial batch reference. Caller must hold the lock and must have already
// verified url is not already present.
func (st *Store) InstallServerLocked(url, batchID string, now time.Time, session Session) *ServerStatus {
	status := newServerStatus(session)
	status.ActiveBatches[batchID] = now
	st.servers[url] = status
	return status
}

// AddBatchRefLocked records that batchID now also monitors an already-known
// url. Caller must hold the lock and must have already verified url exists.
func (st *Store) AddBatchRefLocked(url, batchID string, now time.Time) {
	st.servers[url].ActiveBatches[batchID] = now
}

// RecordBatchLocked stores the set of URLs a batch successfully registered.
// Caller must hold the lock.
func (st *Store) RecordBatchLocked(batchID string, urls []string) {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	st.batches[batchID] = set
}

// RemoveBatchLocked removes batchID from the batch registry and, for every
// URL it referenced, removes that batch's reference from the corresponding
// ServerStatus — closing and deleting the ServerStatus if it becomes
// unreferenced. It returns the URLs the batch had referenced and the subset
// whose monitoring stopped as a result (i.e. whose ServerStatus was removed).
// Caller must hold the lock.
func (st *Store) RemoveBatchLocked(batchID string) (affected, stopped []string, ok bool) {
	set, exists := st.batches[batchID]
	if !exists {
		return nil, nil, false
	}
	delete(st.batches, batchID)

	for url := range set {
		affected = append(affected, url)
		status, exists := st.servers[url]
		if !exists {
			continue
		}
		delete(status.ActiveBatches, batchID)
		if len(status.ActiveBatches) == 0 {
			delete(st.servers, url)
			if status.Session != nil {
				_ = status.Session.Close()
			}
			stopped = append(stopped, url)
		}
	}
	return affected, stopped, true
}

// BatchExists reports whether batchID is currently registered.
func (st *Store) BatchExists(batchID string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.batches[batchID]
	return ok
}

// BatchURLs returns the URLs registered under batchID.
func (st *Store) BatchURLs(batchID string) ([]string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	set, ok := st.batches[batchID]
	if !ok {
		return nil, false
	}
	urls := make([]string, 0, len(set))
	for u := range set {
		urls = append(urls, u)
	}
	return urls, true
}

// SweepExpirations walks every monitored server, dropping batch references
// older than timeout relative to now, and removes any server left with no
// active batch. It returns the URLs that were removed and a snapshot of
// (url, session) pairs for every URL still monitored afterward, so the
// caller can spawn ping tasks after releasing the lock.
func (st *Store) SweepExpirations(now time.Time, timeout time.Duration) (removed []string, stillMonitored map[string]Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	stillMonitored = make(map[string]Session)

	for url, status := range st.servers {
		for batchID, registeredAt := range status.ActiveBatches {
			if now.Sub(registeredAt) > timeout {
				delete(status.ActiveBatches, batchID)
				logging.Info("Heartbeat", "batch %s expired for %s", logging.TruncateID(batchID), url)
			}
		}
		if len(status.ActiveBatches) == 0 {
			if status.Session != nil {
				_ = status.Session.Close()
			}
			delete(st.servers, url)
			removed = append(removed, url)
			continue
		}
		stillMonitored[url] = status.Session
	}

	return removed, stillMonitored
}

// AppendLatency records a ping duration for url, iff url is still
// monitored. It returns false if the server was removed in the meantime.
func (st *Store) AppendLatency(url string, d time.Duration) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	status, ok := st.servers[url]
	if !ok {
		return false
	}
	status.appendLatency(d)
	return true
}

// Metrics returns a snapshot of the latency history for each requested URL.
func (st *Store) Metrics(urls []string) []MetricSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	results := make([]MetricSnapshot, 0, len(urls))
	for _, u := range urls {
		status, ok := st.servers[u]
		if !ok {
			results = append(results, MetricSnapshot{URL: u, Monitored: false})
			continue
		}
		results = append(results, MetricSnapshot{
			URL:              u,
			Monitored:        true,
			AverageLatencyMS: status.averageMS(),
			SampleCount:      len(status.LatencyHistory),
		})
	}
	return results
}
