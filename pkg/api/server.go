package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// Server is the HTTP server carrying the MCP endpoint and the management
// surface.
//
// Endpoints:
//   - POST/GET /mcp: MCP protocol, behind the multi-auth dispatcher
//   - GET /health, /health/ready: probes, unauthenticated
//   - GET /metrics: Prometheus, when metrics are enabled
//   - /admin/*, /auth/diagnostics: behind the admin auth selector
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server          *http.Server
	port            int
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// NewServer creates the HTTP server in a stopped state. Call Start() to
// begin serving requests.
func NewServer(cfg *config.Config, deps Deps) *Server {
	router := NewRouter(cfg, deps)

	ws := cfg.WebServer
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", ws.Port),
		Handler:      router,
		ReadTimeout:  ws.ReadTimeout,
		WriteTimeout: ws.WriteTimeout,
		IdleTimeout:  ws.IdleTimeout,
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = config.DefaultShutdown
	}

	return &Server{
		server:          server,
		port:            ws.Port,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start starts the HTTP server and blocks until the context is cancelled
// or an error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", s.port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server shutdown signal received")
		// Don't reuse the cancelled ctx: it would abort the drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			logger.Error("server shutdown error", "error", err)
		} else {
			logger.Info("server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}
