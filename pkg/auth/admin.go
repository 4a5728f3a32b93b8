package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// AdminSelector guards the administrative surface with exactly one
// statically configured scheme. Unlike the multi-auth dispatcher it never
// falls through to another scheme: a credential of the wrong kind is
// rejected outright.
//
// Construction is fail-fast: selecting a scheme whose prerequisites are
// missing is a startup error, not a per-request 401. NTLM is the single
// exception: its usability follows from the AD domain map and is detected
// lazily per request.
type AdminSelector struct {
	scheme      Scheme
	enabled     bool
	serviceName string
	cfg         config.AuthConfig
	tokens      TokenSet
	codec       *TokenCodec
	custom      CustomValidator
	ntlm        NTLMAuthenticator

	now func() time.Time
}

// AdminOption configures optional admin selector collaborators.
type AdminOption func(*AdminSelector)

// WithAdminCustomValidator registers the validator used when the admin
// scheme is "custom".
func WithAdminCustomValidator(v CustomValidator) AdminOption {
	return func(s *AdminSelector) { s.custom = v }
}

// WithAdminNTLM wires the NTLM engine used when the admin scheme is "ntlm".
func WithAdminNTLM(n NTLMAuthenticator) AdminOption {
	return func(s *AdminSelector) { s.ntlm = n }
}

// NewAdminSelector builds the admin guard and verifies that the selected
// scheme's prerequisites are actually configured.
func NewAdminSelector(cfg *config.Config, opts ...AdminOption) (*AdminSelector, error) {
	admin := cfg.WebServer.AdminAuth
	s := &AdminSelector{
		enabled:     admin.Enabled,
		serviceName: cfg.Name,
		cfg:         cfg.WebServer.Auth,
		tokens:      NewTokenSet(cfg.WebServer.Auth.PermanentServerTokens),
		codec:       NewTokenCodec(cfg.WebServer.Auth.JWTToken.EncryptKey),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !admin.Enabled {
		return s, nil
	}

	scheme, err := ParseScheme(admin.Type)
	if err != nil {
		return nil, fmt.Errorf("admin auth: %w", err)
	}
	s.scheme = scheme

	switch scheme {
	case SchemePermanentToken:
		if len(s.tokens) == 0 {
			return nil, fmt.Errorf("admin auth type %q: no permanent server tokens: %w", scheme, ErrNotConfigured)
		}
	case SchemeBasic:
		if s.cfg.Basic.Username == "" {
			return nil, fmt.Errorf("admin auth type %q: basic credentials missing: %w", scheme, ErrNotConfigured)
		}
	case SchemeEncryptedToken:
		if s.codec == nil {
			return nil, fmt.Errorf("admin auth type %q: encrypt key missing: %w", scheme, ErrNotConfigured)
		}
	case SchemeNTLM:
		// No startup precondition: NTLM usability follows from the domain
		// map and is detected lazily at request time.
	case SchemeCustom:
		if s.custom == nil {
			return nil, fmt.Errorf("admin auth type %q: %w", scheme, ErrNoCustomValidator)
		}
	}
	return s, nil
}

// Enabled reports whether the admin surface requires authentication.
func (s *AdminSelector) Enabled() bool { return s.enabled }

// Scheme returns the selected admin scheme ("" when disabled).
func (s *AdminSelector) Scheme() Scheme { return s.scheme }

// CanLogout reports whether the admin UI can offer a logout action.
// NTLM identity is ambient (negotiated by the OS), so it cannot be
// discarded client-side.
func (s *AdminSelector) CanLogout() bool {
	return s.enabled && s.scheme != SchemeNTLM
}

// Authenticate checks a request against the single selected scheme.
func (s *AdminSelector) Authenticate(ctx context.Context, r *http.Request) *Verdict {
	if !s.enabled {
		return &Verdict{Success: true}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))

	switch s.scheme {
	case SchemePermanentToken:
		token, ok := cutPrefixFold(header, "Bearer ")
		if !ok {
			return Deny(SchemePermanentToken, "missing bearer token")
		}
		if !s.tokens.Contains(strings.TrimSpace(token)) {
			return Deny(SchemePermanentToken, "unknown server token")
		}
		return Allow(SchemePermanentToken, PermanentTokenUser)

	case SchemeBasic:
		blob, ok := cutPrefixFold(header, "Basic ")
		if !ok {
			v := Deny(SchemeBasic, "missing basic credentials")
			v.Challenge = `Basic realm="admin"`
			return v
		}
		return validateBasicPair(Credential{Kind: KindBasic, Token: strings.TrimSpace(blob)}, &s.cfg.Basic)

	case SchemeEncryptedToken:
		token, ok := cutPrefixFold(header, "Bearer ")
		if !ok {
			return Deny(SchemeEncryptedToken, "missing bearer token")
		}
		payload, err := s.codec.Decrypt(strings.TrimSpace(token))
		if err != nil {
			return Deny(SchemeEncryptedToken, "invalid token: "+err.Error())
		}
		return validateToken(payload, s.serviceName, s.cfg.JWTToken.CheckMCPName, s.now())

	case SchemeNTLM:
		if s.ntlm == nil {
			return Deny(SchemeNTLM, "ntlm is not configured")
		}
		blob, ok := cutPrefixFold(header, "NTLM ")
		if !ok {
			if v, live := s.ntlm.Resume(ClientKey(r)); live {
				return v
			}
			v := Deny(SchemeNTLM, "ntlm negotiation required")
			v.Challenge = "NTLM"
			return v
		}
		msg, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
		if err != nil {
			return Deny(SchemeNTLM, "malformed ntlm message: "+err.Error())
		}
		return s.ntlm.Authenticate(ctx, msg, ClientKey(r))

	case SchemeCustom:
		return runCustom(ctx, s.custom, r)
	}

	return Deny(s.scheme, "unsupported admin auth scheme")
}

// Status describes the admin auth state for the UI.
type Status struct {
	AuthType        string `json:"authType"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	User            string `json:"user,omitempty"`
	CanLogout       bool   `json:"canLogout"`
}

// Status summarizes a verdict for the admin status endpoint.
func (s *AdminSelector) Status(v *Verdict) Status {
	st := Status{
		AuthType:  "none",
		CanLogout: s.CanLogout(),
	}
	if s.enabled {
		st.AuthType = string(s.scheme)
	}
	if v != nil && v.Success {
		st.IsAuthenticated = true
		st.User = v.Username
	}
	return st
}
