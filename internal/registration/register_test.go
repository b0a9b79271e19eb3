package registration

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-scheduler/internal/ingestion"
	"mcp-scheduler/internal/schedulererr"
	"mcp-scheduler/internal/state"
)

type fakeSession struct {
	initErr   error
	closed    bool
	pingCount int
}

func (f *fakeSession) Initialize(ctx context.Context) error { return f.initErr }
func (f *fakeSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return nil, nil
}
func (f *fakeSession) Ping(ctx context.Context) error { f.pingCount++; return nil }
func (f *fakeSession) Close() error                   { f.closed = true; return nil }

type fakeIngestion struct {
	err   error
	calls int
}

func (f *fakeIngestion) Run(ctx context.Context, session ingestion.ToolLister, url string) error {
	f.calls++
	return f.err
}

func newTestManager(t *testing.T, sessions map[string]*fakeSession, ing *fakeIngestion) *Manager {
	t.Helper()
	m := New(state.New(), ing)
	m.newSession = func(url string) sessionHandle {
		s, ok := sessions[url]
		require.True(t, ok, "unexpected session request for %s", url)
		return s
	}
	return m
}

func TestRegister_EmptyURLList(t *testing.T) {
	m := newTestManager(t, nil, &fakeIngestion{})
	_, err := m.Register(context.Background(), nil)
	assert.ErrorIs(t, err, schedulererr.ErrBadInput)
}

func TestRegister_AcceptsNewURL(t *testing.T) {
	sess := &fakeSession{}
	m := newTestManager(t, map[string]*fakeSession{"http://a": sess}, &fakeIngestion{})

	result, err := m.Register(context.Background(), []string{"http://a"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, []string{"http://a"}, result.AcceptedURLs)
}

func TestRegister_SkipsURLWhoseHandshakeFails(t *testing.T) {
	sess := &fakeSession{initErr: errors.New("connection refused")}
	m := newTestManager(t, map[string]*fakeSession{"http://a": sess}, &fakeIngestion{})

	result, err := m.Register(context.Background(), []string{"http://a"})
	require.NoError(t, err)
	assert.Empty(t, result.AcceptedURLs, "zero accepted is not itself an error, per the registration endpoint's contract")
}

func TestRegister_StillAcceptsURLWhenIngestionFails(t *testing.T) {
	sess := &fakeSession{}
	ing := &fakeIngestion{err: errors.New("embedding provider down")}
	m := newTestManager(t, map[string]*fakeSession{"http://a": sess}, ing)

	result, err := m.Register(context.Background(), []string{"http://a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a"}, result.AcceptedURLs, "ingestion failures don't block registration")
	assert.Equal(t, 1, ing.calls)
}

func TestRegister_ReusesExistingSessionWithoutReingesting(t *testing.T) {
	sess := &fakeSession{}
	ing := &fakeIngestion{}
	m := newTestManager(t, map[string]*fakeSession{"http://a": sess}, ing)

	_, err := m.Register(context.Background(), []string{"http://a"})
	require.NoError(t, err)
	assert.Equal(t, 1, ing.calls)

	// Second registration of the same URL must reuse the existing
	// ServerStatus rather than calling newSession/ingestion again.
	m.newSession = func(url string) sessionHandle {
		t.Fatalf("newSession should not be called for an already-registered URL")
		return nil
	}
	result, err := m.Register(context.Background(), []string{"http://a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a"}, result.AcceptedURLs)
	assert.Equal(t, 1, ing.calls, "ingestion must not re-run for an already-monitored URL")
}

func TestUnregister_UnknownBatch(t *testing.T) {
	m := newTestManager(t, nil, &fakeIngestion{})
	_, err := m.Unregister("missing")
	assert.ErrorIs(t, err, schedulererr.ErrNotFound)
}

func TestUnregister_StopsSessionWhenLastBatchRemoved(t *testing.T) {
	sess := &fakeSession{}
	m := newTestManager(t, map[string]*fakeSession{"http://a": sess}, &fakeIngestion{})

	result, err := m.Register(context.Background(), []string{"http://a"})
	require.NoError(t, err)

	unreg, err := m.Unregister(result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, unreg.URLsAffected)
	assert.Equal(t, 1, unreg.URLsStopped)
	assert.True(t, sess.closed)
}
