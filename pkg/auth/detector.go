package auth

import (
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

// Detection reports which schemes are configured (have the minimum data
// to ever succeed) independent of any request, plus per-scheme
// configuration errors for schemes that are present but incomplete.
//
// It is produced once at startup for logging and for the diagnostics
// endpoint; incomplete schemes surface here, not as unexplained 401s at
// request time.
type Detection struct {
	Configured []Scheme            `json:"configured"`
	Errors     map[Scheme][]string `json:"errors,omitempty"`

	set map[Scheme]struct{}
}

// IsConfigured reports whether the scheme can ever succeed.
func (d *Detection) IsConfigured(s Scheme) bool {
	_, ok := d.set[s]
	return ok
}

// Detect inspects the static configuration and classifies each scheme.
// It is idempotent and safe to call repeatedly.
//
// Rules:
//   - permanentServerTokens: non-empty token set
//   - basic: both username and password (or passwordHash) non-empty
//   - jwtToken: non-empty encrypt key
//   - ntlm: at least one domain with controllers and service credentials
//     (presence only, no success-testing)
//   - custom: a validator is registered (existence check only)
func Detect(cfg *config.Config, hasCustom bool) *Detection {
	d := &Detection{
		Errors: make(map[Scheme][]string),
		set:    make(map[Scheme]struct{}),
	}

	auth := cfg.WebServer.Auth

	if len(auth.PermanentServerTokens) > 0 {
		d.add(SchemePermanentToken)
	}

	basic := auth.Basic
	hasPassword := basic.Password != "" || basic.PasswordHash != ""
	switch {
	case basic.Username != "" && hasPassword:
		d.add(SchemeBasic)
	case basic.Username != "" || hasPassword:
		d.fail(SchemeBasic, "basic requires both username and password (or passwordHash)")
	}

	if auth.JWTToken.EncryptKey != "" {
		d.add(SchemeEncryptedToken)
	} else if auth.JWTToken.CheckMCPName {
		d.fail(SchemeEncryptedToken, "checkMCPName set but encryptKey is empty")
	}

	if len(cfg.AD.Domains) > 0 {
		usable := false
		for name, dom := range cfg.AD.Domains {
			if len(dom.Controllers) == 0 {
				d.fail(SchemeNTLM, "domain "+name+" has no controllers")
				continue
			}
			if dom.Username == "" || dom.Password == "" {
				d.fail(SchemeNTLM, "domain "+name+" is missing service account credentials")
				continue
			}
			usable = true
		}
		if usable {
			d.add(SchemeNTLM)
		}
	}

	if hasCustom {
		d.add(SchemeCustom)
	}

	if len(d.Errors) == 0 {
		d.Errors = nil
	}
	return d
}

func (d *Detection) add(s Scheme) {
	d.Configured = append(d.Configured, s)
	d.set[s] = struct{}{}
}

func (d *Detection) fail(s Scheme, msg string) {
	d.Errors[s] = append(d.Errors[s], msg)
}
