package handlers

import (
	"net/http"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
)

// DiagnosticsHandler reports the startup authentication detection.
type DiagnosticsHandler struct {
	detection *auth.Detection
	enabled   bool
}

// NewDiagnosticsHandler creates a diagnostics handler over the detection
// computed at startup.
func NewDiagnosticsHandler(detection *auth.Detection, authEnabled bool) *DiagnosticsHandler {
	return &DiagnosticsHandler{detection: detection, enabled: authEnabled}
}

// Diagnostics handles GET /auth/diagnostics.
//
// Returns which schemes are configured and any per-scheme configuration
// errors, so half-configured schemes surface here instead of as
// unexplained 401s.
func (h *DiagnosticsHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(map[string]any{
		"enabled":    h.enabled,
		"configured": h.detection.Configured,
		"errors":     h.detection.Errors,
	}))
}
