package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, DefaultPort, cfg.WebServer.Port)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.WebServer.Auth.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
name: orders-mcp
logging:
  level: DEBUG
  format: json
  output: stderr
webServer:
  port: 9000
  auth:
    enabled: true
    permanentServerTokens:
      - abc123
    jwtToken:
      encryptKey: super-secret
      checkMCPName: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "orders-mcp", cfg.Name)
	assert.Equal(t, 9000, cfg.WebServer.Port)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.True(t, cfg.WebServer.Auth.Enabled)
	assert.Equal(t, []string{"abc123"}, cfg.WebServer.Auth.PermanentServerTokens)
	assert.True(t, cfg.WebServer.Auth.JWTToken.CheckMCPName)
	// Defaults still applied for omitted values.
	assert.Equal(t, DefaultReadTimeout, cfg.WebServer.ReadTimeout)
}

func TestLoadDurations(t *testing.T) {
	path := writeConfig(t, `
name: svc
logging: {level: INFO, format: text, output: stdout}
webServer:
  read_timeout: 5s
shutdown_timeout: 30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.WebServer.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestValidateAdminAuthFailFast(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "jwtToken without encryptKey",
			mutate: func(c *Config) {
				c.WebServer.AdminAuth = AdminAuthConfig{Enabled: true, Type: SchemeJWTToken}
			},
			wantErr: "encryptKey",
		},
		{
			name: "basic without credentials",
			mutate: func(c *Config) {
				c.WebServer.AdminAuth = AdminAuthConfig{Enabled: true, Type: SchemeBasic}
			},
			wantErr: "basic",
		},
		{
			name: "permanent tokens empty",
			mutate: func(c *Config) {
				c.WebServer.AdminAuth = AdminAuthConfig{Enabled: true, Type: SchemePermanentTokens}
			},
			wantErr: "permanentServerTokens",
		},
		{
			name: "enabled without type",
			mutate: func(c *Config) {
				c.WebServer.AdminAuth = AdminAuthConfig{Enabled: true}
			},
			wantErr: "no type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAdminNTLMSkipsPrecondition(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.WebServer.AdminAuth = AdminAuthConfig{Enabled: true, Type: SchemeNTLM}
	// No domains configured: NTLM usability is detected lazily, so this
	// must still pass startup validation.
	require.NoError(t, Validate(cfg))
}

func TestValidateDomains(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.AD.Domains = map[string]DomainConfig{
		"corp": {
			Controllers: []string{"ldap://dc1.corp.local"},
			Username:    "svc",
			Password:    "pw",
		},
	}
	require.NoError(t, Validate(cfg))

	cfg.AD.Domains["corp"] = DomainConfig{
		Controllers: []string{"http://dc1.corp.local"},
		Username:    "svc",
		Password:    "pw",
	}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be ldap")

	cfg.AD.Domains["corp"] = DomainConfig{Username: "svc", Password: "pw"}
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no controllers")
}

func TestValidateMultipleDomainsRequireDefault(t *testing.T) {
	cfg := GetDefaultConfig()
	dom := DomainConfig{
		Controllers: []string{"ldaps://dc.example.com"},
		Username:    "svc",
		Password:    "pw",
	}
	cfg.AD.Domains = map[string]DomainConfig{"a": dom, "b": dom}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none marked default")

	withDefault := dom
	withDefault.Default = true
	cfg.AD.Domains["a"] = withDefault
	require.NoError(t, Validate(cfg))

	cfg.AD.Domains["b"] = withDefault
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one")
}

func TestValidateBasicPair(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.WebServer.Auth.Basic = BasicConfig{Username: "user"}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no password")

	cfg.WebServer.Auth.Basic = BasicConfig{Username: "user", Password: "pw", PasswordHash: "$2a$10$x"}
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestDefaultDomain(t *testing.T) {
	ad := ADConfig{Domains: map[string]DomainConfig{
		"only": {Controllers: []string{"ldap://dc"}},
	}}
	name, _, ok := ad.DefaultDomain()
	require.True(t, ok)
	assert.Equal(t, "only", name)

	ad.Domains["second"] = DomainConfig{Default: true}
	name, _, ok = ad.DefaultDomain()
	require.True(t, ok)
	assert.Equal(t, "second", name)
}

func TestLookupDomainCaseInsensitive(t *testing.T) {
	ad := ADConfig{Domains: map[string]DomainConfig{
		"corp": {Username: "svc"},
	}}
	dom, ok := ad.LookupDomain("CORP")
	require.True(t, ok)
	assert.Equal(t, "svc", dom.Username)

	_, ok = ad.LookupDomain("other")
	assert.False(t, ok)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Name = "saved"
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Name)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
