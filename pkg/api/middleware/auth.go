// Package middleware provides HTTP middleware for the MCP server API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/metrics"
)

// Context key type for storing the auth verdict
type contextKey string

const verdictContextKey contextKey = "verdict"

// VerdictFromContext retrieves the authentication verdict from the request
// context. Returns nil when the request has not passed an auth middleware.
func VerdictFromContext(ctx context.Context) *auth.Verdict {
	v, ok := ctx.Value(verdictContextKey).(*auth.Verdict)
	if !ok {
		return nil
	}
	return v
}

// RequireAuth guards general MCP traffic with the multi-auth dispatcher.
//
// Successful verdicts are stored in the request context. Failures are
// written as JSON and the request never reaches the next handler: 401 for
// authentication failures (with WWW-Authenticate when a handshake is in
// progress), 403 when an identity was established but refused.
func RequireAuth(d *auth.Dispatcher, m metrics.AuthMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := d.Authenticate(r.Context(), r)
			if m != nil {
				switch {
				case v.Exempt:
					m.RecordExempt()
				case v.Scheme != "":
					m.RecordAttempt(string(v.Scheme), v.Success)
				}
			}
			if !v.Success {
				writeAuthFailure(w, r, v)
				return
			}

			ctx := context.WithValue(r.Context(), verdictContextKey, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminAuth guards the admin surface with its single selected
// scheme.
func RequireAdminAuth(s *auth.AdminSelector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := s.Authenticate(r.Context(), r)
			if !v.Success {
				writeAuthFailure(w, r, v)
				return
			}

			ctx := context.WithValue(r.Context(), verdictContextKey, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthFailure renders a failure verdict. The response body never
// carries more than the verdict's own reason; internals stay in the log.
func writeAuthFailure(w http.ResponseWriter, r *http.Request, v *auth.Verdict) {
	status := http.StatusUnauthorized
	if v.Forbidden {
		status = http.StatusForbidden
	}
	if v.Challenge != "" {
		w.Header().Set("WWW-Authenticate", v.Challenge)
	}

	logger.Debug("request rejected",
		"path", r.URL.Path,
		"scheme", string(v.Scheme),
		"status", status,
		"reason", v.Error,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": v.Error})
}
