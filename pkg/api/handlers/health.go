package handlers

import (
	"net/http"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the server ready to authenticate requests?
type HealthHandler struct {
	service   string
	detection *auth.Detection
	enabled   bool
}

// NewHealthHandler creates a new health handler. detection may be nil, in
// which case readiness reports only process liveness.
func NewHealthHandler(service string, detection *auth.Detection, authEnabled bool) *HealthHandler {
	return &HealthHandler{service: service, detection: detection, enabled: authEnabled}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK as long as the HTTP server is responsive; designed for
// Kubernetes liveness probes.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": h.service,
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// When authentication is enabled, readiness requires at least one
// configured scheme: a server that can only say 401 is not ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.enabled && (h.detection == nil || len(h.detection.Configured) == 0) {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("auth enabled but no scheme is configured"))
		return
	}

	schemes := []auth.Scheme{}
	if h.detection != nil {
		schemes = h.detection.Configured
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":      h.service,
		"auth_enabled": h.enabled,
		"auth_schemes": schemes,
	}))
}
