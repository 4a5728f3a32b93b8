package auth

import (
	"encoding/base64"
	"strings"
)

// CredentialKind is the syntactic classification of an Authorization header.
type CredentialKind int

const (
	// KindNone means no recognizable credential was presented.
	KindNone CredentialKind = iota

	// KindBearer is an opaque bearer token present in the permanent-token
	// allow-list.
	KindBearer

	// KindBasic is a Basic base64 user:password pair.
	KindBasic

	// KindEncryptedBearer is a bearer token with the structure of an
	// encrypted token (or one that was clearly intended as such).
	KindEncryptedBearer

	// KindNTLM is an NTLM negotiation message.
	KindNTLM
)

func (k CredentialKind) String() string {
	switch k {
	case KindBearer:
		return "bearer"
	case KindBasic:
		return "basic"
	case KindEncryptedBearer:
		return "encrypted-bearer"
	case KindNTLM:
		return "ntlm"
	default:
		return "none"
	}
}

// Credential is the result of classifying an Authorization header.
//
// Classification is pure and deterministic: the same header, token set and
// codec always produce the same Credential. Decode errors encountered
// during classification are captured here and surfaced later as the
// corresponding validator's failure reason, never thrown.
type Credential struct {
	Kind CredentialKind

	// Token is the material after the scheme keyword: the opaque bearer
	// token, the Basic base64 blob, or the NTLM base64 message.
	Token string

	// Payload is the decrypted token payload when Kind is
	// KindEncryptedBearer and decryption succeeded.
	Payload *TokenPayload

	// DecodeErr records a base64/decrypt/parse failure captured during
	// classification.
	DecodeErr error
}

// TokenSet is the static permanent-token allow-list with O(1) membership.
type TokenSet map[string]struct{}

// NewTokenSet builds a TokenSet from the configured token list.
func NewTokenSet(tokens []string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the token is in the allow-list.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Classify determines the syntactic form of an Authorization header value.
//
// Precedence:
//  1. absent/empty header → KindNone
//  2. "NTLM "-prefixed (case-insensitive) → KindNTLM
//  3. "Basic "-prefixed → KindBasic
//  4. "Bearer "-prefixed → exact membership in the permanent-token set
//     wins (KindBearer); otherwise a structural decrypt is attempted and a
//     well-formed encrypted token yields KindEncryptedBearer. A bearer
//     token that is neither, with a codec configured, still classifies as
//     KindEncryptedBearer carrying the decode error so the failure reason
//     names the scheme that was attempted; without a codec it stays
//     KindBearer and fails the allow-list check.
//  5. anything else → KindNone (downstream triggers the custom fallback)
//
// Classification has no side effects.
func Classify(header string, tokens TokenSet, codec *TokenCodec) Credential {
	header = strings.TrimSpace(header)
	if header == "" {
		return Credential{Kind: KindNone}
	}

	if rest, ok := cutPrefixFold(header, "NTLM "); ok {
		return Credential{Kind: KindNTLM, Token: strings.TrimSpace(rest)}
	}

	if rest, ok := cutPrefixFold(header, "Basic "); ok {
		return Credential{Kind: KindBasic, Token: strings.TrimSpace(rest)}
	}

	if rest, ok := cutPrefixFold(header, "Bearer "); ok {
		token := strings.TrimSpace(rest)
		if tokens.Contains(token) {
			return Credential{Kind: KindBearer, Token: token}
		}
		if codec != nil {
			payload, err := codec.Decrypt(token)
			if err != nil {
				return Credential{Kind: KindEncryptedBearer, Token: token, DecodeErr: err}
			}
			return Credential{Kind: KindEncryptedBearer, Token: token, Payload: payload}
		}
		return Credential{Kind: KindBearer, Token: token}
	}

	return Credential{Kind: KindNone}
}

// cutPrefixFold is strings.CutPrefix with ASCII case-insensitive matching
// of the prefix, as required for HTTP auth scheme keywords.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// decodeBasic splits a Basic base64 blob into username and password.
func decodeBasic(b64 string) (username, password string, err error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", "", err
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", errMalformedBasic
	}
	return user, pass, nil
}
