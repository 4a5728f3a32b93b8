package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/api/handlers"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/api/middleware"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The middleware stack (order matters): request ID, real IP extraction,
// request logging, panic recovery. Authentication is applied per route
// group, not globally: health stays open, /mcp goes through the
// multi-auth dispatcher, /admin and /auth/diagnostics through the admin
// selector.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	health := handlers.NewHealthHandler(cfg.Name, deps.Detection, cfg.WebServer.Auth.Enabled)
	admin := handlers.NewAdminHandler(deps.AdminSelector, deps.TokenCodec, cfg.Name)
	diag := handlers.NewDiagnosticsHandler(deps.Detection, cfg.WebServer.Auth.Enabled)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// MCP traffic - multi-auth dispatcher
	if deps.MCPHandler != nil {
		r.Route("/mcp", func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Dispatcher, deps.AuthMetrics))
			r.Handle("/*", deps.MCPHandler)
			r.Handle("/", deps.MCPHandler)
		})
	}

	// Admin surface - single selected scheme
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminAuth(deps.AdminSelector))
		r.Get("/auth/status", admin.AuthStatus)
		r.Post("/tokens/jwt", admin.IssueJWT)
		r.Post("/tokens/permanent", admin.IssuePermanent)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RequireAdminAuth(deps.AdminSelector))
		r.Get("/diagnostics", diag.Diagnostics)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs requests using the internal logger: start at DEBUG,
// completion at INFO with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())

		logger.Debug("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
