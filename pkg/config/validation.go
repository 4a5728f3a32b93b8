package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Scheme names accepted for webServer.adminAuth.type. They mirror the
// configuration keys of the corresponding sub-sections.
const (
	SchemePermanentTokens = "permanentServerTokens"
	SchemeBasic           = "basic"
	SchemeJWTToken        = "jwtToken"
	SchemeNTLM            = "ntlm"
	SchemeCustom          = "custom"
)

// Validate checks the configuration for structural and semantic errors.
//
// Semantic checks implement the startup-fatal rules: an admin scheme
// selected without its required credentials, an NTLM domain without
// controllers or with a non-LDAP controller URI, and multiple NTLM domains
// with no (or more than one) designated default. These must abort startup
// with a descriptive message, never silently disable auth.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("struct validation: %w", err)
	}

	var errs []error

	if err := validateBasicPair(&cfg.WebServer.Auth.Basic); err != nil {
		errs = append(errs, err)
	}
	if err := validateAdminAuth(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateDomains(&cfg.AD); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateBasicPair rejects half-configured Basic credentials: a username
// without any password material (or vice versa) could never succeed and
// would otherwise surface only as an unexplained 401 at request time.
func validateBasicPair(b *BasicConfig) error {
	hasPassword := b.Password != "" || b.PasswordHash != ""
	if b.Username != "" && !hasPassword {
		return errors.New("webServer.auth.basic: username set but no password or passwordHash")
	}
	if b.Username == "" && hasPassword {
		return errors.New("webServer.auth.basic: password set but no username")
	}
	if b.Password != "" && b.PasswordHash != "" {
		return errors.New("webServer.auth.basic: password and passwordHash are mutually exclusive")
	}
	return nil
}

// validateAdminAuth enforces the admin selector precondition: the selected
// scheme must be fully configured, except for NTLM which is detected lazily
// from the domain map.
func validateAdminAuth(cfg *Config) error {
	admin := cfg.WebServer.AdminAuth
	if !admin.Enabled {
		return nil
	}
	if admin.Type == "" {
		return errors.New("webServer.adminAuth: enabled but no type selected")
	}

	auth := cfg.WebServer.Auth
	switch admin.Type {
	case SchemePermanentTokens:
		if len(auth.PermanentServerTokens) == 0 {
			return errors.New("webServer.adminAuth: type permanentServerTokens requires webServer.auth.permanentServerTokens to be non-empty")
		}
	case SchemeBasic:
		if auth.Basic.Username == "" || (auth.Basic.Password == "" && auth.Basic.PasswordHash == "") {
			return errors.New("webServer.adminAuth: type basic requires webServer.auth.basic username and password")
		}
	case SchemeJWTToken:
		if auth.JWTToken.EncryptKey == "" {
			return errors.New("webServer.adminAuth: type jwtToken requires webServer.auth.jwtToken.encryptKey")
		}
	case SchemeNTLM:
		// NTLM is exempt from the precondition: usable iff the domain map
		// has entries, which is detected lazily.
	case SchemeCustom:
		// The custom validator is a runtime capability; its presence is
		// checked when the server is constructed, not here.
	}
	return nil
}

// validateDomains checks the NTLM domain map.
func validateDomains(ad *ADConfig) error {
	var errs []error
	defaults := 0

	for name, dom := range ad.Domains {
		if len(dom.Controllers) == 0 {
			errs = append(errs, fmt.Errorf("ad.domains.%s: no controllers configured", name))
		}
		for _, c := range dom.Controllers {
			if err := validateControllerURI(c); err != nil {
				errs = append(errs, fmt.Errorf("ad.domains.%s: %w", name, err))
			}
		}
		if dom.Username == "" || dom.Password == "" {
			errs = append(errs, fmt.Errorf("ad.domains.%s: service account username and password are required", name))
		}
		if dom.Default {
			defaults++
		}
	}

	if len(ad.Domains) > 1 {
		switch {
		case defaults == 0:
			errs = append(errs, errors.New("ad.domains: multiple domains configured but none marked default"))
		case defaults > 1:
			errs = append(errs, errors.New("ad.domains: more than one domain marked default"))
		}
	}

	return errors.Join(errs...)
}

// validateControllerURI requires an ldap:// or ldaps:// URI with a host.
func validateControllerURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("controller %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "ldap" && scheme != "ldaps" {
		return fmt.Errorf("controller %q: scheme must be ldap or ldaps", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("controller %q: missing host", raw)
	}
	return nil
}

// DefaultDomain returns the name and config of the fallback NTLM domain.
// With a single domain that domain is returned regardless of its Default
// flag. Returns ok=false when no domain qualifies.
func (ad *ADConfig) DefaultDomain() (string, DomainConfig, bool) {
	if len(ad.Domains) == 1 {
		for name, dom := range ad.Domains {
			return name, dom, true
		}
	}
	for name, dom := range ad.Domains {
		if dom.Default {
			return name, dom, true
		}
	}
	return "", DomainConfig{}, false
}

// LookupDomain finds a domain by name, case-insensitively. NTLM clients
// report NetBIOS names in upper case while configs usually use lower case.
func (ad *ADConfig) LookupDomain(name string) (DomainConfig, bool) {
	if dom, ok := ad.Domains[name]; ok {
		return dom, true
	}
	for n, dom := range ad.Domains {
		if strings.EqualFold(n, name) {
			return dom, true
		}
	}
	return DomainConfig{}, false
}
