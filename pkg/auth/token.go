package auth

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// TokenPayload is the decrypted content of an encrypted bearer token.
//
// Expire is Unix milliseconds. Service, when present, names the MCP service
// the token was issued for and is enforced when jwtToken.checkMCPName is
// set. Extra preserves any additional claims the issuer embedded.
type TokenPayload struct {
	User    string         `json:"user"`
	Expire  int64          `json:"expire"`
	Service string         `json:"service,omitempty"`
	Extra   map[string]any `json:"-"`
}

// Fields returns the payload as a flat map, including extra claims.
// Used to populate Verdict.Payload.
func (p *TokenPayload) Fields() map[string]any {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["user"] = p.User
	out["expire"] = p.Expire
	if p.Service != "" {
		out["service"] = p.Service
	}
	return out
}

// TokenCodec encrypts and decrypts bearer tokens as compact JWE
// (dir + A256GCM). The content-encryption key is derived from the
// configured secret with SHA-256, so any secret length is accepted.
type TokenCodec struct {
	key []byte
}

// NewTokenCodec derives a codec from the configured encrypt key.
// Returns nil when the key is empty (scheme not configured).
func NewTokenCodec(encryptKey string) *TokenCodec {
	if encryptKey == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(encryptKey))
	return &TokenCodec{key: sum[:]}
}

// Encrypt serializes and encrypts a payload into a compact JWE token.
func (c *TokenCodec) Encrypt(p *TokenPayload) (string, error) {
	claims := p.Fields()
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}

	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.key},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("create encrypter: %w", err)
	}

	obj, err := enc.Encrypt(data)
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}

	tok, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return tok, nil
}

// Decrypt decrypts a compact JWE token and parses its payload.
//
// Decrypt does not validate expiry or service: structural soundness is the
// classification concern, payload validation belongs to the scheme
// validator.
func (c *TokenCodec) Decrypt(token string) (*TokenPayload, error) {
	obj, err := jose.ParseEncrypted(token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	data, err := obj.Decrypt(c.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}

	p := &TokenPayload{Extra: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case "user":
			p.User, _ = v.(string)
		case "expire":
			switch n := v.(type) {
			case float64:
				p.Expire = int64(n)
			case json.Number:
				i, _ := n.Int64()
				p.Expire = i
			}
		case "service":
			p.Service, _ = v.(string)
		default:
			p.Extra[k] = v
		}
	}
	return p, nil
}

// validateToken checks a decrypted payload against the scheme rules:
// required fields, expiry, and (optionally) the service name.
func validateToken(p *TokenPayload, serviceName string, checkService bool, now time.Time) *Verdict {
	if p.User == "" || p.Expire == 0 {
		v := Deny(SchemeEncryptedToken, "token payload missing user or expire")
		v.IsTokenDecrypted = true
		return v
	}
	if p.Expire <= now.UnixMilli() {
		v := Deny(SchemeEncryptedToken, "token expired")
		v.IsTokenDecrypted = true
		return v
	}
	if checkService && p.Service != serviceName {
		v := Deny(SchemeEncryptedToken, fmt.Sprintf("token service mismatch: token is for %q", p.Service))
		v.IsTokenDecrypted = true
		return v
	}

	v := Allow(SchemeEncryptedToken, p.User)
	v.IsTokenDecrypted = true
	v.Payload = p.Fields()
	return v
}
