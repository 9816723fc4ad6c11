package controlapi

import (
	"os"
	"time"

	"github.com/marmos91/someipd/internal/logger"
)

// EnvJWTSecret is the environment variable holding the control API's JWT
// signing secret. Takes precedence over Config.JWT.Secret.
const EnvJWTSecret = "SOMEIPD_CONTROLAPI_SECRET"

// Config configures the control API HTTP server.
type Config struct {
	// Enabled turns the server on. Default: false — the control API is an
	// optional introspection surface, unlike the wire-protocol listeners.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP listen port. Default: 8090.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds reading the entire request. Default: 10s.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	// WriteTimeout bounds writing the response. Default: 10s.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// IdleTimeout bounds keep-alive idle time. Default: 60s.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// JWT configures bearer-token authentication for API routes.
	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

// JWTConfig configures token signing and validation.
type JWTConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters. Can
	// also be set via SOMEIPD_CONTROLAPI_SECRET, which takes precedence.
	Secret string `mapstructure:"secret" yaml:"secret"`
	// TokenDuration is the lifetime of issued tokens. Default: 1h.
	TokenDuration time.Duration `mapstructure:"token_duration" yaml:"token_duration"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.JWT.TokenDuration == 0 {
		c.JWT.TokenDuration = time.Hour
	}
}

// GetJWTSecret returns the signing secret, preferring the environment
// variable over the config value.
func (c *Config) GetJWTSecret() string {
	if envSecret := os.Getenv(EnvJWTSecret); envSecret != "" {
		if c.JWT.Secret != "" && c.JWT.Secret != envSecret {
			logger.Warn("control API JWT secret from environment variable overrides config file value",
				"env_var", EnvJWTSecret)
		}
		return envSecret
	}
	return c.JWT.Secret
}
