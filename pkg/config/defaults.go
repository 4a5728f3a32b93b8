package config

import "time"

// Default values applied when the configuration omits them.
const (
	DefaultName         = "mcpserve"
	DefaultPort         = 8080
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 120 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
	DefaultShutdown     = 10 * time.Second
)

// GetDefaultConfig returns a configuration with all defaults applied and
// authentication disabled. It is used when no config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Name: DefaultName,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero values with sensible defaults.
// It is idempotent and safe to call on an already-defaulted config.
func ApplyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.WebServer.Port <= 0 {
		cfg.WebServer.Port = DefaultPort
	}
	if cfg.WebServer.ReadTimeout == 0 {
		cfg.WebServer.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WebServer.WriteTimeout == 0 {
		cfg.WebServer.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.WebServer.IdleTimeout == 0 {
		cfg.WebServer.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdown
	}
}
