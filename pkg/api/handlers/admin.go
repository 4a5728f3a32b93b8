package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/api/middleware"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
)

// AdminHandler implements the authenticated administrative endpoints:
// auth status and token issuance.
type AdminHandler struct {
	selector *auth.AdminSelector
	codec    *auth.TokenCodec
	service  string
}

// NewAdminHandler creates a new admin handler. codec may be nil when no
// encrypt key is configured; token issuance then returns an error response.
func NewAdminHandler(selector *auth.AdminSelector, codec *auth.TokenCodec, service string) *AdminHandler {
	return &AdminHandler{selector: selector, codec: codec, service: service}
}

// AuthStatus handles GET /admin/auth/status.
//
// Reports which scheme guards the admin surface, who the caller is, and
// whether a logout control makes sense for this scheme.
func (h *AdminHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	v := middleware.VerdictFromContext(r.Context())
	writeJSON(w, http.StatusOK, okResponse(h.selector.Status(v)))
}

// IssueTokenRequest is the request body for POST /admin/tokens/jwt.
type IssueTokenRequest struct {
	// User is the principal the token asserts.
	User string `json:"user"`

	// TTL is the token lifetime, e.g. "24h". Defaults to 24h.
	TTL string `json:"ttl,omitempty"`

	// Extra claims embedded verbatim into the payload.
	Extra map[string]any `json:"extra,omitempty"`
}

// IssueTokenResponse carries an issued token.
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	User      string    `json:"user,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IssueJWT handles POST /admin/tokens/jwt.
//
// Issues an encrypted bearer token for the given user. The service claim
// is always stamped with this server's name so tokens survive enabling
// checkMCPName later.
func (h *AdminHandler) IssueJWT(w http.ResponseWriter, r *http.Request) {
	if h.codec == nil {
		writeJSON(w, http.StatusConflict, errorResponse("encrypted tokens are not configured: set webServer.auth.jwtToken.encryptKey"))
		return
	}

	var req IssueTokenRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.User == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("user is required"))
		return
	}

	ttl := 24 * time.Hour
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid ttl"))
			return
		}
		ttl = parsed
	}

	expiresAt := time.Now().Add(ttl)
	token, err := h.codec.Encrypt(&auth.TokenPayload{
		User:    req.User,
		Expire:  expiresAt.UnixMilli(),
		Service: h.service,
		Extra:   req.Extra,
	})
	if err != nil {
		logger.Error("token issuance failed", "user", req.User, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("failed to issue token"))
		return
	}

	issuer := ""
	if v := middleware.VerdictFromContext(r.Context()); v != nil {
		issuer = v.Username
	}
	logger.Info("encrypted token issued", "user", req.User, "expires_at", expiresAt, "issued_by", issuer)

	writeJSON(w, http.StatusCreated, okResponse(IssueTokenResponse{
		Token:     token,
		User:      req.User,
		ExpiresAt: expiresAt.UTC(),
	}))
}

// IssuePermanent handles POST /admin/tokens/permanent.
//
// Mints a fresh opaque token value. The server's token allow-list is
// immutable at runtime, so the minted value is advisory: it must be added
// to webServer.auth.permanentServerTokens and the server restarted before
// it authenticates anything.
func (h *AdminHandler) IssuePermanent(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	writeJSON(w, http.StatusCreated, okResponse(IssueTokenResponse{Token: token}))
}
