package ntlm

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// Authorizer decides whether an authenticated DOMAIN\user may access the
// service. The default allows everyone; hosts plug in group or allow-list
// checks. A non-nil error becomes a 403, not a 401: the identity was
// established, access was refused.
type Authorizer interface {
	Authorize(domain, username string) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(domain, username string) error

func (f AuthorizerFunc) Authorize(domain, username string) error { return f(domain, username) }

// Negotiator drives the two-round NTLM handshake and maintains the
// session store. It implements the dispatcher's NTLMAuthenticator
// interface.
type Negotiator struct {
	ad         *config.ADConfig
	store      *SessionStore
	verifier   DirectoryVerifier
	authorizer Authorizer
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithVerifier replaces the default Kerberos directory verifier.
func WithVerifier(v DirectoryVerifier) Option {
	return func(n *Negotiator) { n.verifier = v }
}

// WithAuthorizer installs a post-authentication access check.
func WithAuthorizer(a Authorizer) Option {
	return func(n *Negotiator) { n.authorizer = a }
}

// WithSessionStore replaces the default session store.
func WithSessionStore(s *SessionStore) Option {
	return func(n *Negotiator) { n.store = s }
}

// NewNegotiator builds the handshake engine over the configured domains.
func NewNegotiator(ad *config.ADConfig, opts ...Option) *Negotiator {
	n := &Negotiator{
		ad:    ad,
		store: NewSessionStore(DefaultSessionTTL),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.verifier == nil {
		n.verifier = NewKerberosVerifier(ad)
	}
	return n
}

// Sessions exposes the session store for metrics and logout handling.
func (n *Negotiator) Sessions() *SessionStore { return n.store }

// Resume returns a success verdict when the client has a live session.
// Reuse refreshes the session's expiry.
func (n *Negotiator) Resume(clientKey string) (*auth.Verdict, bool) {
	sess, ok := n.store.Get(clientKey)
	if !ok {
		return nil, false
	}
	return auth.Allow(auth.SchemeNTLM, qualified(sess.Domain, sess.Username)), true
}

// Authenticate processes one decoded NTLMSSP message for a client.
//
// A Type 1 message yields a failure verdict carrying the Type 2 challenge
// for the transport to relay; a Type 3 message completes the handshake,
// verifies the identity against the directory, runs authorization and
// establishes a session.
func (n *Negotiator) Authenticate(ctx context.Context, message []byte, clientKey string) *auth.Verdict {
	switch TypeOf(message) {
	case Negotiate:
		return n.handleNegotiate(message, clientKey)
	case Authenticate:
		return n.handleAuthenticate(ctx, message, clientKey)
	case Challenge:
		return auth.Deny(auth.SchemeNTLM, "unexpected challenge message from client")
	default:
		return auth.Deny(auth.SchemeNTLM, "not an ntlm message")
	}
}

func (n *Negotiator) handleNegotiate(message []byte, clientKey string) *auth.Verdict {
	neg, err := ParseNegotiate(message)
	if err != nil {
		return auth.Deny(auth.SchemeNTLM, "invalid negotiate message: "+err.Error())
	}

	domain, _, err := n.selectDomain(neg.Domain)
	if err != nil {
		return auth.Deny(auth.SchemeNTLM, err.Error())
	}

	challengeMsg, challenge := BuildChallenge(strings.ToUpper(domain))
	n.store.beginHandshake(clientKey, challenge, domain)

	v := auth.Deny(auth.SchemeNTLM, "ntlm negotiation in progress")
	v.Challenge = "NTLM " + base64.StdEncoding.EncodeToString(challengeMsg)
	return v
}

func (n *Negotiator) handleAuthenticate(ctx context.Context, message []byte, clientKey string) *auth.Verdict {
	am, err := ParseAuthenticate(message)
	if err != nil {
		return auth.Deny(auth.SchemeNTLM, "invalid authenticate message: "+err.Error())
	}
	if am.IsAnonymous || am.Username == "" {
		return auth.Deny(auth.SchemeNTLM, "anonymous ntlm authentication is not allowed")
	}
	if len(am.NtChallengeResponse) == 0 {
		return auth.Deny(auth.SchemeNTLM, "missing nt challenge response")
	}

	// The challenge is single-use; a Type 3 without a preceding Type 2
	// from us is replayed or out of order.
	pend, ok := n.store.takeHandshake(clientKey)
	if !ok {
		return auth.Deny(auth.SchemeNTLM, "no pending ntlm handshake for this client")
	}

	domain := am.Domain
	if domain == "" {
		domain = pend.domain
	}
	domain, _, err = n.selectDomain(domain)
	if err != nil {
		return auth.Deny(auth.SchemeNTLM, err.Error())
	}

	// The NT response is not verified against the challenge; doing so
	// needs the account's NT hash (local store) or a Netlogon channel.
	// A verifier with either would plug in here via DirectoryVerifier.
	if err := n.verifier.Verify(ctx, domain, am.Username); err != nil {
		return auth.Deny(auth.SchemeNTLM, err.Error())
	}

	user := qualified(domain, am.Username)
	if n.authorizer != nil {
		if err := n.authorizer.Authorize(domain, am.Username); err != nil {
			logger.Info("ntlm authorization refused",
				"user", user, "workstation", am.Workstation, "error", err)
			return auth.Forbid(auth.SchemeNTLM, user, err.Error())
		}
	}

	n.store.Put(clientKey, am.Username, domain)
	logger.Info("ntlm session established",
		"user", user, "workstation", am.Workstation)
	return auth.Allow(auth.SchemeNTLM, user)
}

// selectDomain resolves the effective domain: an explicitly asserted
// domain must be configured; an empty one falls back to the default.
func (n *Negotiator) selectDomain(asserted string) (string, config.DomainConfig, error) {
	if asserted != "" {
		dom, ok := n.ad.LookupDomain(asserted)
		if !ok {
			return "", config.DomainConfig{}, Error("ntlm: domain " + asserted + " is not configured")
		}
		return asserted, dom, nil
	}
	name, dom, ok := n.ad.DefaultDomain()
	if !ok {
		return "", config.DomainConfig{}, Error("ntlm: no domain asserted and no default domain configured")
	}
	return name, dom, nil
}

// qualified formats the DOMAIN\user principal.
func qualified(domain, username string) string {
	return strings.ToUpper(domain) + `\` + username
}
