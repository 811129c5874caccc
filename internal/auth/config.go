package auth

import "time"

// Config holds API authentication settings. An empty JWTSecret disables
// authentication.
type Config struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Enabled reports whether a signing secret is configured.
func (c Config) Enabled() bool {
	return c.JWTSecret != ""
}

// DefaultConfig returns authentication disabled with a 24h token lifetime.
func DefaultConfig() Config {
	return Config{TokenTTL: 24 * time.Hour}
}
