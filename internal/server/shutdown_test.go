package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salla-analytics/internal/config"
	"salla-analytics/internal/observability"
)

type hookLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *hookLog) record(name string, err error) func(context.Context) error {
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls = append(l.calls, name)
		return err
	}
}

func newTestGracefulServer(addr string) *GracefulServer {
	return NewGracefulServer(&http.Server{Addr: addr}, observability.Discard(),
		config.ServerConfig{ShutdownTimeout: 5 * time.Second})
}

func TestGracefulServer_HooksRunNewestFirst(t *testing.T) {
	gs := newTestGracefulServer("")
	var log hookLog
	gs.OnShutdown("warehouse", log.record("warehouse", nil))
	gs.OnShutdown("cache cleanup", log.record("cache cleanup", nil))

	require.NoError(t, gs.shutdown(context.Background()))
	assert.Equal(t, []string{"cache cleanup", "warehouse"}, log.calls)
}

func TestGracefulServer_FailedHookDoesNotStopOthers(t *testing.T) {
	gs := newTestGracefulServer("")
	closeErr := errors.New("connection reset")
	var log hookLog
	gs.OnShutdown("warehouse", log.record("warehouse", closeErr))
	gs.OnShutdown("cache cleanup", log.record("cache cleanup", nil))

	err := gs.shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, closeErr)
	assert.Contains(t, err.Error(), "warehouse: connection reset")
	assert.Equal(t, []string{"cache cleanup", "warehouse"}, log.calls)
}

func TestGracefulServer_OnShutdownCancel(t *testing.T) {
	gs := newTestGracefulServer("")
	loop, stop := context.WithCancel(context.Background())
	gs.OnShutdownCancel("cache cleanup", stop)

	require.NoError(t, gs.shutdown(context.Background()))
	assert.ErrorIs(t, loop.Err(), context.Canceled)
}

func TestGracefulServer_RunStopsWhenContextEnds(t *testing.T) {
	gs := newTestGracefulServer("127.0.0.1:0")
	var log hookLog
	gs.OnShutdown("warehouse", log.record("warehouse", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []string{"warehouse"}, log.calls)
}

func TestGracefulServer_ListenFailureStillReleasesResources(t *testing.T) {
	gs := newTestGracefulServer("127.0.0.1:-1")
	var log hookLog
	gs.OnShutdown("warehouse", log.record("warehouse", nil))

	err := gs.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
	assert.Equal(t, []string{"warehouse"}, log.calls)
}
