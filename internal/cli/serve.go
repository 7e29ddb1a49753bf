package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/skein/pkg/adapters/http"
	mcpadapter "github.com/aretw0/skein/pkg/adapters/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configure the HTTP server.
type ServeOptions struct {
	Addr    string
	Library string
	// Ready, when set, receives the bound address once listening.
	Ready func(addr string)
}

// Serve runs the HTTP API until ctx is done, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	mgr, closeStore, err := a.newManager(ctx, opts.Library, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer closeStore()

	handler, err := httpadapter.NewHandler(mgr,
		httpadapter.WithLogger(a.Logger),
		httpadapter.WithMetricsHandler(promhttp.Handler()),
	)
	if err != nil {
		return err
	}

	addr := opts.Addr
	if addr == "" {
		addr = a.Config.Server.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// MCPOptions configure the MCP server.
type MCPOptions struct {
	Transport string
	Addr      string
	Library   string
}

// MCP serves the story tools over stdio or SSE.
func (a *App) MCP(ctx context.Context, opts MCPOptions) error {
	mgr, closeStore, err := a.newManager(ctx, opts.Library, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := mcpadapter.NewServer(mgr, mcpadapter.WithLogger(a.Logger))
	switch opts.Transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		addr := opts.Addr
		if addr == "" {
			addr = a.Config.Server.Addr
		}
		return srv.ServeSSE(ctx, addr)
	default:
		return fmt.Errorf("unknown transport %q (want stdio or sse)", opts.Transport)
	}
}
