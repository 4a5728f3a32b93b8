package api

import (
	"net/http"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/metrics"
)

// Deps are the collaborators the HTTP server wires together. Port and
// timeout settings come from config.WebServerConfig; everything here is
// behavior, constructed once at startup.
type Deps struct {
	// Dispatcher guards general MCP traffic. Required.
	Dispatcher *auth.Dispatcher

	// AdminSelector guards the admin surface. Required.
	AdminSelector *auth.AdminSelector

	// Detection is the startup scheme detection, served by the
	// diagnostics and readiness endpoints.
	Detection *auth.Detection

	// MCPHandler serves the MCP protocol under /mcp. May be nil in tests.
	MCPHandler http.Handler

	// TokenCodec issues encrypted tokens for the admin endpoints. Nil
	// when no encrypt key is configured.
	TokenCodec *auth.TokenCodec

	// AuthMetrics records authentication outcomes. Nil disables recording.
	AuthMetrics metrics.AuthMetrics

	// MetricsHandler serves GET /metrics. Nil disables the endpoint.
	MetricsHandler http.Handler
}
