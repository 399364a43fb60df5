// Package server runs an http.Server until its context ends, then drains it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// New returns a server for handler on port with the header timeout both
// binaries use.
func New(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Serve listens on srv.Addr and serves until ctx is done, then shuts down
// gracefully, closing outright once grace has passed.
func Serve(ctx context.Context, srv *http.Server, grace time.Duration, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return ServeListener(ctx, srv, ln, grace, logger)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server", "grace", grace)

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("graceful server shutdown failed", "error", err)
			return errors.Join(err, srv.Close())
		}
		return nil
	})

	return g.Wait()
}
