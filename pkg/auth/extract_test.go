package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestClassifyPrecedence(t *testing.T) {
	tokens := NewTokenSet([]string{"tok-alpha", "tok-beta"})
	codec := NewTokenCodec("classify-test-key")

	enc, err := codec.Encrypt(&TokenPayload{User: "alice", Expire: 1})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		kind   CredentialKind
	}{
		{"Empty", "", KindNone},
		{"Whitespace", "   ", KindNone},
		{"NTLM", "NTLM TlRMTVNTUAAB", KindNTLM},
		{"NTLMLowerCase", "ntlm TlRMTVNTUAAB", KindNTLM},
		{"Basic", basicHeader("user", "pass"), KindBasic},
		{"KnownBearer", "Bearer tok-alpha", KindBearer},
		{"BearerCaseInsensitiveScheme", "bearer tok-beta", KindBearer},
		{"EncryptedBearer", "Bearer " + enc, KindEncryptedBearer},
		{"UnknownScheme", "Digest nonce=abc", KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := Classify(tt.header, tokens, codec)
			assert.Equal(t, tt.kind, cred.Kind)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	tokens := NewTokenSet([]string{"tok"})
	codec := NewTokenCodec("classify-test-key")
	header := "Bearer definitely-not-a-token"

	first := Classify(header, tokens, codec)
	for i := 0; i < 10; i++ {
		again := Classify(header, tokens, codec)
		assert.Equal(t, first.Kind, again.Kind)
		assert.Equal(t, first.Token, again.Token)
	}
}

// An unknown bearer with a codec configured classifies as an encrypted
// bearer carrying the decode error, so the failure reason names the scheme
// that was attempted. Without a codec it stays a plain bearer.
func TestClassifyUnknownBearer(t *testing.T) {
	tokens := NewTokenSet([]string{"tok"})

	cred := Classify("Bearer garbage", tokens, NewTokenCodec("key"))
	assert.Equal(t, KindEncryptedBearer, cred.Kind)
	assert.Error(t, cred.DecodeErr)
	assert.Nil(t, cred.Payload)

	cred = Classify("Bearer garbage", tokens, nil)
	assert.Equal(t, KindBearer, cred.Kind)
	assert.NoError(t, cred.DecodeErr)
}

// Membership in the permanent-token set wins over decryption even when a
// codec is configured.
func TestClassifyMembershipWins(t *testing.T) {
	tokens := NewTokenSet([]string{"tok-alpha"})
	cred := Classify("Bearer tok-alpha", tokens, NewTokenCodec("key"))
	assert.Equal(t, KindBearer, cred.Kind)
}

func TestDecodeBasic(t *testing.T) {
	user, pass, err := decodeBasic(base64.StdEncoding.EncodeToString([]byte("alice:s3cret")))
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret", pass)

	// Password may itself contain a colon.
	user, pass, err = decodeBasic(base64.StdEncoding.EncodeToString([]byte("alice:a:b:c")))
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "a:b:c", pass)

	_, _, err = decodeBasic("!!!not-base64!!!")
	assert.Error(t, err)

	_, _, err = decodeBasic(base64.StdEncoding.EncodeToString([]byte("no-colon")))
	assert.ErrorIs(t, err, errMalformedBasic)
}

func TestTokenSet(t *testing.T) {
	s := NewTokenSet([]string{"a", "", "b"})
	assert.True(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains(""))
	assert.False(t, s.Contains("c"))
}
