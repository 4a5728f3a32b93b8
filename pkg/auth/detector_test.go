package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

func TestDetectAllSchemes(t *testing.T) {
	cfg := testConfig()
	cfg.AD.Domains = map[string]config.DomainConfig{
		"corp": {
			Controllers: []string{"ldap://dc1.corp.example.com"},
			Username:    "svc",
			Password:    "pw",
		},
	}

	d := Detect(cfg, true)
	for _, s := range Schemes() {
		assert.True(t, d.IsConfigured(s), "scheme %s should be configured", s)
	}
	assert.Nil(t, d.Errors)
}

func TestDetectNothingConfigured(t *testing.T) {
	d := Detect(&config.Config{}, false)
	assert.Empty(t, d.Configured)
	for _, s := range Schemes() {
		assert.False(t, d.IsConfigured(s))
	}
}

func TestDetectPartialBasic(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebServer.Auth.Basic.Username = "user"

	d := Detect(cfg, false)
	assert.False(t, d.IsConfigured(SchemeBasic))
	require.NotEmpty(t, d.Errors[SchemeBasic])
	assert.Contains(t, d.Errors[SchemeBasic][0], "both username and password")
}

func TestDetectBasicWithPasswordHash(t *testing.T) {
	cfg := &config.Config{}
	cfg.WebServer.Auth.Basic.Username = "user"
	cfg.WebServer.Auth.Basic.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"

	d := Detect(cfg, false)
	assert.True(t, d.IsConfigured(SchemeBasic))
}

func TestDetectNTLMReportsBrokenDomains(t *testing.T) {
	cfg := &config.Config{}
	cfg.AD.Domains = map[string]config.DomainConfig{
		"good": {Controllers: []string{"ldap://dc1"}, Username: "svc", Password: "pw"},
		"bad":  {Controllers: nil, Username: "svc", Password: "pw"},
	}

	d := Detect(cfg, false)
	// One usable domain is enough, but the broken one is reported.
	assert.True(t, d.IsConfigured(SchemeNTLM))
	require.NotEmpty(t, d.Errors[SchemeNTLM])
	assert.Contains(t, d.Errors[SchemeNTLM][0], "no controllers")
}

func TestDetectCustomByRegistration(t *testing.T) {
	assert.False(t, Detect(&config.Config{}, false).IsConfigured(SchemeCustom))
	assert.True(t, Detect(&config.Config{}, true).IsConfigured(SchemeCustom))
}

func TestDetectIsIdempotent(t *testing.T) {
	cfg := testConfig()
	first := Detect(cfg, false)
	second := Detect(cfg, false)
	assert.Equal(t, first.Configured, second.Configured)
	assert.Equal(t, first.Errors, second.Errors)
}
