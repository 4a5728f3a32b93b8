package ntlm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

func testAD() *config.ADConfig {
	return &config.ADConfig{
		Domains: map[string]config.DomainConfig{
			"corp": {
				Controllers: []string{"ldap://dc1.corp.example.com"},
				Username:    "svc-mcp",
				Password:    "secret",
				Default:     true,
			},
			"lab": {
				Controllers: []string{"ldap://dc1.lab.example.com"},
				Username:    "svc-mcp",
				Password:    "secret",
			},
		},
	}
}

func allowAll() DirectoryVerifier {
	return DirectoryVerifierFunc(func(ctx context.Context, domain, username string) error {
		return nil
	})
}

func completeHandshake(t *testing.T, n *Negotiator, clientKey, domain, user string) *auth.Verdict {
	t.Helper()
	v := n.Authenticate(context.Background(), buildNegotiate(domain), clientKey)
	require.False(t, v.Success)
	require.True(t, strings.HasPrefix(v.Challenge, "NTLM "), "expected challenge, got %+v", v)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v.Challenge, "NTLM "))
	require.NoError(t, err)
	require.Equal(t, Challenge, TypeOf(raw))

	return n.Authenticate(context.Background(), buildAuthenticate(domain, user, "WS01", false), clientKey)
}

func TestHandshakeSuccess(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))

	v := completeHandshake(t, n, "10.0.0.5|agent", "CORP", "alice")
	require.True(t, v.Success, "verdict: %+v", v)
	assert.Equal(t, auth.SchemeNTLM, v.Scheme)
	assert.Equal(t, `CORP\alice`, v.Username)
}

func TestHandshakeDefaultDomain(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))

	// Type 1 without a domain falls back to the configured default.
	v := completeHandshake(t, n, "c1", "", "bob")
	require.True(t, v.Success, "verdict: %+v", v)
	assert.Equal(t, `CORP\bob`, v.Username)
}

func TestHandshakeUnknownDomain(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))

	v := n.Authenticate(context.Background(), buildNegotiate("EVIL"), "c1")
	require.False(t, v.Success)
	assert.Contains(t, v.Error, "not configured")
	assert.Empty(t, v.Challenge)
}

func TestHandshakeNoDefaultDomain(t *testing.T) {
	ad := testAD()
	dom := ad.Domains["corp"]
	dom.Default = false
	ad.Domains["corp"] = dom

	n := NewNegotiator(ad, WithVerifier(allowAll()))
	v := n.Authenticate(context.Background(), buildNegotiate(""), "c1")
	require.False(t, v.Success)
	assert.Contains(t, v.Error, "no default domain")
}

func TestAuthenticateWithoutHandshake(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))

	v := n.Authenticate(context.Background(), buildAuthenticate("CORP", "alice", "WS01", false), "c1")
	require.False(t, v.Success)
	assert.Contains(t, v.Error, "no pending ntlm handshake")
}

func TestChallengeIsSingleUse(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))

	v := completeHandshake(t, n, "c1", "CORP", "alice")
	require.True(t, v.Success)
	n.Sessions().Delete("c1")

	// Replaying the Type 3 after the handshake was consumed must fail.
	v = n.Authenticate(context.Background(), buildAuthenticate("CORP", "alice", "WS01", false), "c1")
	require.False(t, v.Success)
}

func TestAnonymousRejected(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))
	n.Authenticate(context.Background(), buildNegotiate("CORP"), "c1")

	v := n.Authenticate(context.Background(), buildAuthenticate("", "", "", true), "c1")
	require.False(t, v.Success)
	assert.Contains(t, v.Error, "anonymous")
}

func TestDirectoryFailure(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(DirectoryVerifierFunc(
		func(ctx context.Context, domain, username string) error {
			return errors.New("domain CORP is not reachable")
		})))

	v := completeHandshake(t, n, "c1", "CORP", "alice")
	require.False(t, v.Success)
	assert.Contains(t, v.Error, "not reachable")
	assert.False(t, v.Forbidden)
}

func TestAuthorizerRefusal(t *testing.T) {
	n := NewNegotiator(testAD(),
		WithVerifier(allowAll()),
		WithAuthorizer(AuthorizerFunc(func(domain, username string) error {
			return errors.New("user is not in the mcp-users group")
		})))

	v := completeHandshake(t, n, "c1", "CORP", "alice")
	require.False(t, v.Success)
	assert.True(t, v.Forbidden, "authorization failure must be forbidden, not unauthenticated")
	assert.Equal(t, `CORP\alice`, v.Username)
}

func TestResumeAfterHandshake(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))

	v := completeHandshake(t, n, "c1", "CORP", "alice")
	require.True(t, v.Success)

	resumed, ok := n.Resume("c1")
	require.True(t, ok)
	assert.Equal(t, `CORP\alice`, resumed.Username)

	_, ok = n.Resume("c2")
	assert.False(t, ok, "unknown client must not resume")
}

func TestGarbageMessage(t *testing.T) {
	n := NewNegotiator(testAD(), WithVerifier(allowAll()))
	v := n.Authenticate(context.Background(), []byte("not ntlm at all"), "c1")
	require.False(t, v.Success)
	assert.Contains(t, v.Error, "not an ntlm message")
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	base := time.Now()
	now := base
	store.now = func() time.Time { return now }

	store.Put("c1", "alice", "corp")
	_, ok := store.Get("c1")
	require.True(t, ok)

	now = base.Add(2 * time.Minute)
	_, ok = store.Get("c1")
	assert.False(t, ok, "session must expire after its TTL")
}

func TestSessionRefreshOnUse(t *testing.T) {
	store := NewSessionStore(time.Minute)
	base := time.Now()
	now := base
	store.now = func() time.Time { return now }

	store.Put("c1", "alice", "corp")

	// Touch the session every 40s; each access pushes the deadline out.
	for i := 1; i <= 5; i++ {
		now = base.Add(time.Duration(i) * 40 * time.Second)
		_, ok := store.Get("c1")
		require.True(t, ok, "access %d should refresh the session", i)
	}

	now = now.Add(2 * time.Minute)
	_, ok := store.Get("c1")
	assert.False(t, ok)
}

func TestSessionSweep(t *testing.T) {
	store := NewSessionStore(time.Minute)
	base := time.Now()
	now := base
	store.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		store.Put(k, "user", "corp")
	}
	require.Equal(t, 3, store.Len())

	now = base.Add(10 * time.Minute)
	assert.Equal(t, 0, store.Len())
}

func TestSessionDelete(t *testing.T) {
	store := NewSessionStore(0)
	store.Put("c1", "alice", "corp")
	store.Delete("c1")
	_, ok := store.Get("c1")
	assert.False(t, ok)
}

func TestControllerHost(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ldap://dc1.corp.example.com", "dc1.corp.example.com"},
		{"ldaps://dc1.corp.example.com:636", "dc1.corp.example.com"},
		{"dc1.corp.example.com", "dc1.corp.example.com"},
		{"dc1.corp.example.com:389", "dc1.corp.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, controllerHost(tt.in), "input %q", tt.in)
	}
}
