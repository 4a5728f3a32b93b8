// Package config loads and validates the server configuration.
//
// The auth core consumes this configuration as an immutable snapshot: it is
// assembled once at startup from file, environment and defaults, validated,
// and never mutated afterwards. Changing authentication settings requires a
// restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the mcpserve configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (MCPSERVE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Name is the MCP service name. Encrypted tokens carry a service claim
	// that is checked against this value when jwtToken.checkMCPName is set.
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// WebServer contains the HTTP server and authentication configuration.
	WebServer WebServerConfig `mapstructure:"webServer" yaml:"webServer"`

	// AD describes the Active Directory domains used for NTLM authentication.
	AD ADConfig `mapstructure:"ad" yaml:"ad"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format ("text" or "json").
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is exposed.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// WebServerConfig configures the HTTP server and its authentication policies.
type WebServerConfig struct {
	// Port is the HTTP port for MCP and admin endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 120s (MCP responses can stream for a while)
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// Auth configures multi-scheme authentication for general MCP traffic.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// AdminAuth configures the single-scheme policy for the admin surface.
	// It is independent of Auth.Enabled.
	AdminAuth AdminAuthConfig `mapstructure:"adminAuth" yaml:"adminAuth"`
}

// AuthConfig holds per-scheme authentication configuration.
//
// A scheme is considered configured when it has the minimum data to ever
// succeed; see the auth package's Detect for the exact rules. The structure
// is read-only after startup, so no locking is needed for concurrent reads.
type AuthConfig struct {
	// Enabled gates the whole multi-auth subsystem. When false, every
	// request passes with an empty verdict.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// PermanentServerTokens is a static allow-list of opaque bearer tokens.
	PermanentServerTokens []string `mapstructure:"permanentServerTokens" yaml:"permanentServerTokens,omitempty"`

	// Basic holds the single supported username/password pair.
	Basic BasicConfig `mapstructure:"basic" yaml:"basic,omitempty"`

	// JWTToken configures encrypted bearer token validation.
	JWTToken JWTTokenConfig `mapstructure:"jwtToken" yaml:"jwtToken,omitempty"`
}

// BasicConfig is the single credential pair for HTTP Basic authentication.
// This is a deliberate simplification, not a user directory.
type BasicConfig struct {
	// Username is the expected user name.
	Username string `mapstructure:"username" yaml:"username,omitempty"`

	// Password is the expected password in clear text.
	// Mutually exclusive with PasswordHash.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// PasswordHash is a bcrypt hash of the expected password.
	// Preferred over Password for configuration files at rest.
	// Use: htpasswd -nbB "" "password" | cut -d: -f2
	PasswordHash string `mapstructure:"passwordHash" yaml:"passwordHash,omitempty"`
}

// JWTTokenConfig configures encrypted (JWE) bearer tokens.
type JWTTokenConfig struct {
	// EncryptKey is the symmetric secret used to encrypt and decrypt tokens.
	// The actual content-encryption key is derived from it with SHA-256.
	EncryptKey string `mapstructure:"encryptKey" yaml:"encryptKey,omitempty"`

	// CheckMCPName requires the token's service claim to match Config.Name.
	CheckMCPName bool `mapstructure:"checkMCPName" yaml:"checkMCPName,omitempty"`
}

// AdminAuthConfig selects exactly one scheme for the admin surface.
type AdminAuthConfig struct {
	// Enabled controls whether the admin surface requires authentication.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Type is the scheme enforced on the admin surface. Unlike general MCP
	// traffic there is no per-request detection: only this scheme is tried.
	Type string `mapstructure:"type" validate:"omitempty,oneof=permanentServerTokens basic jwtToken ntlm custom" yaml:"type,omitempty"`
}

// ADConfig describes the Active Directory environment for NTLM.
type ADConfig struct {
	// Domains maps a domain name (NetBIOS or DNS) to its controllers and
	// service account. Presence of at least one entry makes NTLM usable.
	Domains map[string]DomainConfig `mapstructure:"domains" yaml:"domains,omitempty"`

	// TLS holds transport options for controller connections.
	TLS ADTLSConfig `mapstructure:"tls" yaml:"tls,omitempty"`
}

// DomainConfig describes one Active Directory domain.
type DomainConfig struct {
	// Controllers is the list of domain controller URIs (ldap:// or ldaps://).
	Controllers []string `mapstructure:"controllers" yaml:"controllers"`

	// Username is the service account used to talk to the controllers.
	Username string `mapstructure:"username" yaml:"username"`

	// Password is the service account password.
	Password string `mapstructure:"password" yaml:"password"`

	// Default marks this domain as the fallback when the client's NTLM
	// message carries no domain or an unknown one. With a single domain the
	// flag is implied; with several exactly one entry must carry it.
	Default bool `mapstructure:"default" yaml:"default,omitempty"`
}

// ADTLSConfig holds TLS options for domain controller connections.
type ADTLSConfig struct {
	// InsecureSkipVerify disables certificate verification for ldaps
	// controllers. Test environments only.
	InsecureSkipVerify bool `mapstructure:"insecureSkipVerify" yaml:"insecureSkipVerify,omitempty"`

	// CAFile is an optional PEM bundle for controller certificates.
	CAFile string `mapstructure:"caFile" yaml:"caFile,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration, or an error when loading
// or validation fails. Validation failures include the startup-fatal
// authentication misconfigurations; they must abort startup rather than
// surface later as unexplained 401s.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the config
// file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may contain tokens and service account passwords.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures environment variables and config file lookup.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the MCPSERVE_ prefix with underscores.
	// Example: MCPSERVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("MCPSERVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}

// getConfigDir returns $XDG_CONFIG_HOME/mcpserve or ~/.config/mcpserve.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mcpserve")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mcpserve")
}

// configDecodeHooks returns the mapstructure decode hooks used when
// unmarshalling: duration strings ("30s") and comma-separated slices.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
