package authapi

import (
	"net/http"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	if cfg.AccessCookieName != "access_token" ||
		cfg.RefreshCookieName != "refresh_token" ||
		cfg.SessionCookieName != "session_id" {
		t.Fatalf("unexpected cookie names: %+v", cfg)
	}
	if !cfg.CookieSecure {
		t.Fatalf("CookieSecure = false, want true")
	}
	if cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Fatalf("CookieSameSite = %v, want Lax", cfg.CookieSameSite)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("MaxBodyBytes = %d, want 1MiB", cfg.MaxBodyBytes)
	}
	if cfg.LoginUserMax != 5 || cfg.LoginUserWindow != 15*time.Minute {
		t.Fatalf("unexpected login throttle defaults: %+v", cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("SHORTLY_AUTH_COOKIE_SAMESITE", "none")
	t.Setenv("SHORTLY_AUTH_COOKIE_SECURE", "false")
	t.Setenv("SHORTLY_AUTH_TRUST_PROXY", "true")
	t.Setenv("SHORTLY_AUTH_LOGIN_IP_MAX", "50")

	cfg := LoadConfigFromEnv()

	if cfg.CookieSameSite != http.SameSiteNoneMode {
		t.Fatalf("CookieSameSite = %v, want None", cfg.CookieSameSite)
	}
	if cfg.CookieSecure {
		t.Fatalf("CookieSecure = true, want false")
	}
	if !cfg.TrustProxy {
		t.Fatalf("TrustProxy = false, want true")
	}
	if cfg.LoginIPMax != 50 {
		t.Fatalf("LoginIPMax = %d, want 50", cfg.LoginIPMax)
	}
}

func TestLoadConfigFromEnv_CollidingCookieNames(t *testing.T) {
	t.Setenv("SHORTLY_AUTH_ACCESS_COOKIE_NAME", "tok")
	t.Setenv("SHORTLY_AUTH_REFRESH_COOKIE_NAME", "tok")

	cfg := LoadConfigFromEnv()

	if cfg.AccessCookieName != "access_token" || cfg.RefreshCookieName != "refresh_token" {
		t.Fatalf("expected fallback to default cookie names, got %+v", cfg)
	}
}
