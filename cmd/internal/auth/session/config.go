package session

import (
	"os"
	"strconv"
	"time"
)

// Config defines all runtime configuration for the session subsystem.
//
// It controls access-token TTL, refresh-token lifetimes, fingerprint policy,
// refresh entropy size, and the JWT signing secret. Values are explicit and
// environment-driven so deployments can tune security parameters without
// code changes.
type Config struct {
	// AccessTokenTTL defines the lifetime of HS256 access tokens.
	AccessTokenTTL time.Duration

	// Refresh token lifetimes: 30 days for "remember me" sessions,
	// one day otherwise.
	RefreshTTLRemember time.Duration
	RefreshTTLShort    time.Duration

	// RefreshTokenBytes defines the number of random bytes used
	// to generate opaque refresh tokens.
	RefreshTokenBytes int

	// CompareIP enables the IP half of the fingerprint check during
	// rotation. The user-agent half is always compared.
	CompareIP bool

	// JWTSecret is the HS256 signing secret for access tokens.
	JWTSecret []byte
}

// DefaultConfig returns a secure default configuration suitable for
// development. The JWT secret must still be provided.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:     15 * time.Minute,
		RefreshTTLRemember: 30 * 24 * time.Hour,
		RefreshTTLShort:    24 * time.Hour,
		RefreshTokenBytes:  32,
		CompareIP:          true,
	}
}

// RefreshTTL selects the refresh lifetime for a session.
func (c Config) RefreshTTL(remember bool) time.Duration {
	if remember {
		return c.RefreshTTLRemember
	}
	return c.RefreshTTLShort
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - SHORTLY_JWT_SECRET (min 32 bytes)
//
// Optional (durations must be valid Go duration strings):
//   - SHORTLY_AUTH_ACCESS_TTL
//   - SHORTLY_AUTH_REFRESH_TTL_REMEMBER
//   - SHORTLY_AUTH_REFRESH_TTL_SHORT
//   - SHORTLY_AUTH_REFRESH_TOKEN_BYTES
//   - SHORTLY_AUTH_COMPARE_IP
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("SHORTLY_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("SHORTLY_AUTH_REFRESH_TTL_REMEMBER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTLRemember = d
	}

	if v := os.Getenv("SHORTLY_AUTH_REFRESH_TTL_SHORT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTLShort = d
	}

	if v := os.Getenv("SHORTLY_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	if v := os.Getenv("SHORTLY_AUTH_COMPARE_IP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.CompareIP = b
	}

	secret := os.Getenv("SHORTLY_JWT_SECRET")
	if len(secret) < 32 {
		return Config{}, ErrConfig
	}
	cfg.JWTSecret = []byte(secret)

	// Invariant: "remember me" sessions must not outlive short ones in reverse.
	if cfg.RefreshTTLRemember < cfg.RefreshTTLShort {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
