package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// PermanentTokenUser is the placeholder principal recorded for requests
// authenticated with a permanent server token. The token value itself is
// deliberately kept out of verdicts and logs.
const PermanentTokenUser = "permanent-token"

// NTLMAuthenticator is the dispatcher's view of the NTLM negotiation
// engine (implemented in the ntlm sub-package).
//
// Authenticate processes one decoded NTLMSSP message for the client
// identified by clientKey. Resume reports a still-valid session for a
// client that presented no credential, refreshing its expiry.
type NTLMAuthenticator interface {
	Authenticate(ctx context.Context, message []byte, clientKey string) *Verdict
	Resume(clientKey string) (*Verdict, bool)
}

// Dispatcher is the orchestration core of multi-scheme authentication.
//
// For each request it consults the exemption table, classifies the
// Authorization header, and invokes exactly one scheme validator chosen by
// that classification. It never retries a different scheme after one has
// been selected: wrong-scheme credentials fail fast. The single exception
// is the custom validator, consulted only when classification yields
// KindNone.
//
// Dispatcher is immutable after construction and safe for concurrent use.
type Dispatcher struct {
	serviceName string
	cfg         config.AuthConfig
	tokens      TokenSet
	codec       *TokenCodec
	custom      CustomValidator
	ntlm        NTLMAuthenticator
	exempt      *ExemptionTable

	// now is injected in tests to pin expiry boundaries.
	now func() time.Time

	// validators maps a classification to its scheme validator. Indirect
	// so tests can instrument call counts.
	validators map[CredentialKind]validatorFunc
}

type validatorFunc func(ctx context.Context, cred Credential, r *http.Request) *Verdict

// DispatcherOption configures optional dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithCustomValidator registers the host-supplied fallback validator.
func WithCustomValidator(v CustomValidator) DispatcherOption {
	return func(d *Dispatcher) { d.custom = v }
}

// WithNTLM wires the NTLM negotiation engine.
func WithNTLM(n NTLMAuthenticator) DispatcherOption {
	return func(d *Dispatcher) { d.ntlm = n }
}

// WithExemptions sets the public-resource exception table.
func WithExemptions(t *ExemptionTable) DispatcherOption {
	return func(d *Dispatcher) { d.exempt = t }
}

// NewDispatcher builds the dispatcher from the immutable configuration.
func NewDispatcher(cfg *config.Config, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		serviceName: cfg.Name,
		cfg:         cfg.WebServer.Auth,
		tokens:      NewTokenSet(cfg.WebServer.Auth.PermanentServerTokens),
		codec:       NewTokenCodec(cfg.WebServer.Auth.JWTToken.EncryptKey),
		exempt:      NewExemptionTable(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.validators = map[CredentialKind]validatorFunc{
		KindBearer:          d.validatePermanent,
		KindBasic:           d.validateBasic,
		KindEncryptedBearer: d.validateToken,
		KindNTLM:            d.validateNTLM,
	}
	return d
}

// Enabled reports whether the multi-auth subsystem is active.
func (d *Dispatcher) Enabled() bool { return d.cfg.Enabled }

// Exemptions returns the exception table for startup wiring.
func (d *Dispatcher) Exemptions() *ExemptionTable { return d.exempt }

// Authenticate runs the full per-request decision:
// exemption check → classification → exactly one validator → verdict.
//
// When the subsystem is disabled every request passes with an empty
// verdict (no scheme). Exempt requests pass before any validator runs,
// regardless of header content.
func (d *Dispatcher) Authenticate(ctx context.Context, r *http.Request) *Verdict {
	if !d.cfg.Enabled {
		return &Verdict{Success: true}
	}

	if d.exempt.IsExempt(r.URL.Path, PeekRPCCall(r)) {
		return &Verdict{Success: true, Exempt: true}
	}

	cred := Classify(r.Header.Get("Authorization"), d.tokens, d.codec)
	if cred.Kind == KindNone {
		return d.validateNone(ctx, r)
	}
	return d.validators[cred.Kind](ctx, cred, r)
}

// validateNone handles requests without a recognizable credential: a live
// NTLM session is resumed if one exists for this client, otherwise the
// custom validator (when registered) is the final fallback.
func (d *Dispatcher) validateNone(ctx context.Context, r *http.Request) *Verdict {
	if d.ntlm != nil {
		if v, ok := d.ntlm.Resume(ClientKey(r)); ok {
			return v
		}
	}
	if d.custom != nil {
		return runCustom(ctx, d.custom, r)
	}

	v := Deny("", "missing authorization header")
	if d.ntlm != nil {
		// Invite the client to start an NTLM handshake.
		v.Challenge = "NTLM"
	}
	return v
}

func (d *Dispatcher) validatePermanent(_ context.Context, cred Credential, _ *http.Request) *Verdict {
	if !d.tokens.Contains(cred.Token) {
		return Deny(SchemePermanentToken, "unknown server token")
	}
	return Allow(SchemePermanentToken, PermanentTokenUser)
}

func (d *Dispatcher) validateBasic(_ context.Context, cred Credential, _ *http.Request) *Verdict {
	return validateBasicPair(cred, &d.cfg.Basic)
}

func (d *Dispatcher) validateToken(_ context.Context, cred Credential, _ *http.Request) *Verdict {
	if d.codec == nil {
		return Deny(SchemeEncryptedToken, "encrypted tokens are not configured")
	}
	if cred.DecodeErr != nil {
		return Deny(SchemeEncryptedToken, "invalid token: "+cred.DecodeErr.Error())
	}
	return validateToken(cred.Payload, d.serviceName, d.cfg.JWTToken.CheckMCPName, d.now())
}

func (d *Dispatcher) validateNTLM(ctx context.Context, cred Credential, r *http.Request) *Verdict {
	if d.ntlm == nil {
		return Deny(SchemeNTLM, "ntlm is not configured")
	}
	msg, err := base64.StdEncoding.DecodeString(cred.Token)
	if err != nil {
		return Deny(SchemeNTLM, "malformed ntlm message: "+err.Error())
	}
	return d.ntlm.Authenticate(ctx, msg, ClientKey(r))
}

// validateBasicPair compares decoded Basic credentials against the single
// configured pair. Comparison is constant-time to avoid timing side
// channels; a bcrypt passwordHash is honored when configured.
func validateBasicPair(cred Credential, cfg *config.BasicConfig) *Verdict {
	if cfg.Username == "" {
		return Deny(SchemeBasic, "basic auth is not configured")
	}

	user, pass, err := decodeBasic(cred.Token)
	if err != nil {
		return Deny(SchemeBasic, "malformed basic credentials")
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) == 1

	var passOK bool
	if cfg.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1
	}

	if !userOK || !passOK {
		return Deny(SchemeBasic, "invalid credentials")
	}
	return Allow(SchemeBasic, user)
}

// ClientKey identifies a client for NTLM session tracking: remote IP plus
// User-Agent. Losing a session only forces a repeat negotiation, so the
// key does not need to be collision-free, just stable per client.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host + "|" + r.UserAgent()
}
