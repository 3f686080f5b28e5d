package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	AccessCookieName  string
	RefreshCookieName string
	SessionCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	LoginIPMax    int
	LoginIPWindow time.Duration

	LoginUserMax    int
	LoginUserWindow time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:        envBool("SHORTLY_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("SHORTLY_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		AccessCookieName:  envString("SHORTLY_AUTH_ACCESS_COOKIE_NAME", "access_token"),
		RefreshCookieName: envString("SHORTLY_AUTH_REFRESH_COOKIE_NAME", "refresh_token"),
		SessionCookieName: envString("SHORTLY_AUTH_SESSION_COOKIE_NAME", "session_id"),
		CookiePath:        envString("SHORTLY_AUTH_COOKIE_PATH", "/"),
		CookieDomain:      envString("SHORTLY_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:      envBool("SHORTLY_AUTH_COOKIE_SECURE", true),
		CookieSameSite:    envSameSite("SHORTLY_AUTH_COOKIE_SAMESITE", http.SameSiteLaxMode),
		LoginIPMax:        envInt("SHORTLY_AUTH_LOGIN_IP_MAX", 20),
		LoginIPWindow:     envDuration("SHORTLY_AUTH_LOGIN_IP_WINDOW", 5*time.Minute),
		LoginUserMax:      envInt("SHORTLY_AUTH_LOGIN_USER_MAX", 5),
		LoginUserWindow:   envDuration("SHORTLY_AUTH_LOGIN_USER_WINDOW", 15*time.Minute),
	}

	// The three cookie names must stay distinct; fall back to defaults when a
	// deployment collapses them.
	if cfg.AccessCookieName == cfg.RefreshCookieName ||
		cfg.AccessCookieName == cfg.SessionCookieName ||
		cfg.RefreshCookieName == cfg.SessionCookieName {
		cfg.AccessCookieName = "access_token"
		cfg.RefreshCookieName = "refresh_token"
		cfg.SessionCookieName = "session_id"
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
