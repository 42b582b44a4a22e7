package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"salla-analytics/internal/config"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// GracefulServer serves until its context ends, drains in-flight requests
// and then runs the registered hooks newest first, so resources are
// released in the reverse order they were acquired.
type GracefulServer struct {
	server  *http.Server
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []hook
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, cfg config.ServerConfig) *GracefulServer {
	return &GracefulServer{
		server:  server,
		logger:  logger,
		timeout: cfg.ShutdownTimeout,
	}
}

// OnShutdown registers fn under name. Hooks run after the HTTP server has
// stopped accepting requests, even when draining times out.
func (gs *GracefulServer) OnShutdown(name string, fn func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, hook{name: name, fn: fn})
}

// OnShutdownCancel registers a hook that stops a background loop.
func (gs *GracefulServer) OnShutdownCancel(name string, cancel context.CancelFunc) {
	gs.OnShutdown(name, func(context.Context) error {
		cancel()
		return nil
	})
}

// Run serves until ctx is canceled or the listener fails.
func (gs *GracefulServer) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		gs.logger.Info("starting server",
			"addr", gs.server.Addr,
			"read_timeout", gs.server.ReadTimeout,
			"write_timeout", gs.server.WriteTimeout,
		)
		serveErr <- gs.server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else {
			err = fmt.Errorf("server failed: %w", err)
		}
		hookCtx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()
		return errors.Join(err, gs.runHooks(hookCtx))

	case <-ctx.Done():
		gs.logger.Info("shutdown requested", "cause", context.Cause(ctx))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gs.timeout)
		defer cancel()
		return gs.shutdown(shutdownCtx)
	}
}

func (gs *GracefulServer) shutdown(ctx context.Context) error {
	gs.logger.Info("draining connections", "timeout", gs.timeout)
	start := time.Now()

	var drainErr error
	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Warn("connections still open after drain timeout", "error", err)
		drainErr = fmt.Errorf("drain http server: %w", err)
	} else {
		gs.logger.Info("http server stopped", "duration", time.Since(start))
	}

	err := errors.Join(drainErr, gs.runHooks(ctx))
	if err == nil {
		gs.logger.Info("graceful shutdown completed", "duration", time.Since(start))
	}
	return err
}

func (gs *GracefulServer) runHooks(ctx context.Context) error {
	gs.mu.Lock()
	hooks := slices.Clone(gs.hooks)
	gs.mu.Unlock()

	var errs []error
	for _, h := range slices.Backward(hooks) {
		if err := h.fn(ctx); err != nil {
			gs.logger.Error("shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		gs.logger.Debug("shutdown hook completed", "hook", h.name)
	}
	return errors.Join(errs...)
}
