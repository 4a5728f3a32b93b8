package auth

import (
	"fmt"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// Scheme identifies one recognized authentication method. The values match
// the configuration keys of the corresponding sub-sections, so they appear
// verbatim in config files, verdicts and diagnostics.
type Scheme string

const (
	// SchemePermanentToken checks opaque bearer tokens against a static
	// allow-list.
	SchemePermanentToken Scheme = config.SchemePermanentTokens

	// SchemeBasic checks HTTP Basic credentials against the single
	// configured pair.
	SchemeBasic Scheme = config.SchemeBasic

	// SchemeEncryptedToken decrypts a JWE bearer token and validates its
	// payload.
	SchemeEncryptedToken Scheme = config.SchemeJWTToken

	// SchemeNTLM performs challenge-response negotiation against the
	// configured Active Directory domains.
	SchemeNTLM Scheme = config.SchemeNTLM

	// SchemeCustom delegates to a host-supplied validator.
	SchemeCustom Scheme = config.SchemeCustom
)

// Schemes lists all recognized schemes in classification precedence order.
func Schemes() []Scheme {
	return []Scheme{
		SchemeNTLM,
		SchemeBasic,
		SchemePermanentToken,
		SchemeEncryptedToken,
		SchemeCustom,
	}
}

// ParseScheme converts a configuration string into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemePermanentToken, SchemeBasic, SchemeEncryptedToken, SchemeNTLM, SchemeCustom:
		return Scheme(s), nil
	}
	return "", fmt.Errorf("unknown auth scheme %q", s)
}
