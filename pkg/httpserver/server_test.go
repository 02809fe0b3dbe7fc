package httpserver_test

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/httpserver"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestServer_RunUntilContextCancelled(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	var started, stopped atomic.Bool
	ready := make(chan struct{})
	srv := httpserver.New(
		httpserver.WithAddr(addr),
		httpserver.WithShutdownTimeout(100*time.Millisecond),
		httpserver.WithStartHook(func(*slog.Logger) {
			started.Store(true)
			close(ready)
		}),
		httpserver.WithStopHook(func(*slog.Logger) { stopped.Store(true) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}()
	<-ready

	var resp *http.Response
	var err error
	for range 50 {
		resp, err = http.Get("http://" + addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	waitDone(t, done)
	assert.True(t, started.Load())
	assert.True(t, stopped.Load())
}

func TestServer_ShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	ready := make(chan struct{})
	srv := httpserver.New(
		httpserver.WithAddr(freeAddr(t)),
		httpserver.WithShutdownTimeout(50*time.Millisecond),
		httpserver.WithStartHook(func(*slog.Logger) { close(ready) }),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), http.NewServeMux()) }()
	<-ready

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestServer_StartErrors(t *testing.T) {
	t.Parallel()

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New(httpserver.WithAddr(":invalid"))
		err := srv.Run(context.Background(), http.NewServeMux())
		assert.ErrorIs(t, err, httpserver.ErrStart)
	})

	t.Run("already running", func(t *testing.T) {
		t.Parallel()
		ready := make(chan struct{})
		srv := httpserver.New(
			httpserver.WithAddr(freeAddr(t)),
			httpserver.WithShutdownTimeout(50*time.Millisecond),
			httpserver.WithStartHook(func(*slog.Logger) { close(ready) }),
		)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Run(ctx, http.NewServeMux()) }()
		<-ready

		err := srv.Run(context.Background(), http.NewServeMux())
		assert.ErrorIs(t, err, httpserver.ErrStart)
		assert.ErrorIs(t, err, httpserver.ErrRunning)

		cancel()
		waitDone(t, done)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	hs := &http.Server{}
	ready := make(chan struct{})
	srv := httpserver.NewFromConfig(httpserver.Config{
		Addr:            addr,
		ReadTimeout:     time.Second,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: 50 * time.Millisecond,
	},
		httpserver.WithServer(hs),
		httpserver.WithStartHook(func(*slog.Logger) { close(ready) }),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), nil) }()
	<-ready

	assert.Equal(t, addr, hs.Addr)
	assert.Equal(t, time.Second, hs.ReadTimeout)
	assert.Equal(t, 2*time.Second, hs.WriteTimeout)
	assert.Zero(t, hs.IdleTimeout)
	assert.NotNil(t, hs.Handler)

	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"write", func() { httpserver.WithWriteTimeout(0) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(0) }},
		{"server", func() { httpserver.WithServer(nil) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"stop hook", func() { httpserver.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}
}
