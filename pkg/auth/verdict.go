package auth

// Verdict is the per-request outcome of an authentication check.
//
// Exactly one Verdict is produced per request. It is attached to the
// request context on success and discarded when the request completes;
// it is never shared across requests. Success implies an empty Error.
type Verdict struct {
	// Success reports whether the request is authenticated (or exempt).
	Success bool `json:"success"`

	// Error is the human-readable failure reason. Empty on success.
	Error string `json:"error,omitempty"`

	// Scheme is the scheme that produced this verdict. Empty when auth is
	// disabled or the request was exempt.
	Scheme Scheme `json:"scheme,omitempty"`

	// Username is the authenticated principal, when the scheme knows one.
	// For NTLM it is DOMAIN\user; for permanent tokens it is a synthesized
	// placeholder.
	Username string `json:"username,omitempty"`

	// IsTokenDecrypted is set when an encrypted token was successfully
	// decrypted, regardless of whether its payload passed validation.
	IsTokenDecrypted bool `json:"isTokenDecrypted,omitempty"`

	// Payload carries the decoded token payload or any extra fields a
	// custom validator attached.
	Payload map[string]any `json:"payload,omitempty"`

	// Exempt marks a request that passed through the public-resource
	// exception table without any validator running.
	Exempt bool `json:"-"`

	// Forbidden distinguishes an authorization failure (identity was
	// established, access denied) from an authentication failure. The
	// middleware maps it to 403 instead of 401.
	Forbidden bool `json:"-"`

	// Challenge, when non-empty, is a WWW-Authenticate header value the
	// middleware must send with the 401 to continue an NTLM handshake.
	Challenge string `json:"-"`
}

// Allow builds a success verdict for the given scheme and principal.
func Allow(scheme Scheme, username string) *Verdict {
	return &Verdict{Success: true, Scheme: scheme, Username: username}
}

// Deny builds a failure verdict with a human-readable reason.
func Deny(scheme Scheme, reason string) *Verdict {
	return &Verdict{Scheme: scheme, Error: reason}
}

// Forbid builds an authenticated-but-unauthorized verdict.
func Forbid(scheme Scheme, username, reason string) *Verdict {
	return &Verdict{Scheme: scheme, Username: username, Error: reason, Forbidden: true}
}
