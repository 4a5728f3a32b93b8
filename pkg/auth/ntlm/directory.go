package ntlm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// DirectoryVerifier checks an asserted DOMAIN\user identity against the
// directory backing that domain. Implementations must be safe for
// concurrent use.
type DirectoryVerifier interface {
	Verify(ctx context.Context, domain, username string) error
}

// DirectoryVerifierFunc adapts a function to the DirectoryVerifier
// interface, mainly for tests.
type DirectoryVerifierFunc func(ctx context.Context, domain, username string) error

func (f DirectoryVerifierFunc) Verify(ctx context.Context, domain, username string) error {
	return f(ctx, domain, username)
}

// KerberosVerifier validates domains by authenticating each domain's
// service account against its controllers with Kerberos. A domain whose
// service account cannot obtain a TGT is treated as unreachable and every
// identity asserted against it is rejected.
//
// Successful service logins are cached per domain for a short window so a
// burst of NTLM handshakes does not hammer the KDC.
type KerberosVerifier struct {
	domains map[string]config.DomainConfig

	mu       sync.Mutex
	verified map[string]time.Time
}

// serviceLoginCacheTTL is how long a successful service-account login
// vouches for a domain before it is re-checked.
const serviceLoginCacheTTL = 5 * time.Minute

// NewKerberosVerifier builds a verifier over the configured AD domains.
// Domain names are normalized to upper case, matching how NTLM clients
// report them.
func NewKerberosVerifier(ad *config.ADConfig) *KerberosVerifier {
	v := &KerberosVerifier{
		domains:  make(map[string]config.DomainConfig, len(ad.Domains)),
		verified: make(map[string]time.Time),
	}
	for name, dom := range ad.Domains {
		v.domains[strings.ToUpper(name)] = dom
	}
	return v
}

// Verify implements DirectoryVerifier.
func (v *KerberosVerifier) Verify(ctx context.Context, domain, username string) error {
	dom, ok := v.domains[strings.ToUpper(domain)]
	if !ok {
		return fmt.Errorf("unknown domain %q", domain)
	}

	if v.recentlyVerified(domain) {
		return nil
	}

	if err := v.serviceLogin(ctx, domain, dom); err != nil {
		logger.Warn("domain controller check failed",
			"domain", domain, "user", username, "error", err)
		return fmt.Errorf("domain %s is not reachable: %w", domain, err)
	}

	v.mu.Lock()
	v.verified[strings.ToUpper(domain)] = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *KerberosVerifier) recentlyVerified(domain string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.verified[strings.ToUpper(domain)]
	return ok && time.Since(t) < serviceLoginCacheTTL
}

// serviceLogin obtains a TGT for the domain's service account. The login
// runs in a goroutine so the request context can bound it; gokrb5 has no
// context support of its own.
func (v *KerberosVerifier) serviceLogin(ctx context.Context, domain string, dom config.DomainConfig) error {
	krbCfg, err := krb5config.NewFromString(krb5Conf(domain, dom.Controllers))
	if err != nil {
		return fmt.Errorf("build krb5 config: %w", err)
	}

	realm := strings.ToUpper(domain)
	cl := client.NewWithPassword(dom.Username, realm, dom.Password, krbCfg,
		client.DisablePAFXFAST(true))

	done := make(chan error, 1)
	go func() {
		defer cl.Destroy()
		done <- cl.Login()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("service account login: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// krb5Conf renders a minimal krb5.conf for one realm whose KDCs are the
// configured domain controllers.
func krb5Conf(domain string, controllers []string) string {
	realm := strings.ToUpper(domain)
	var b strings.Builder
	fmt.Fprintf(&b, "[libdefaults]\n default_realm = %s\n dns_lookup_kdc = false\n\n[realms]\n %s = {\n", realm, realm)
	for _, c := range controllers {
		fmt.Fprintf(&b, "  kdc = %s:88\n", controllerHost(c))
	}
	b.WriteString(" }\n")
	return b.String()
}

// controllerHost extracts the host name from a controller entry, which may
// be a bare host or an ldap://host[:port] URI.
func controllerHost(c string) string {
	if strings.Contains(c, "://") {
		if u, err := url.Parse(c); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	if host, _, ok := strings.Cut(c, ":"); ok {
		return host
	}
	return c
}
