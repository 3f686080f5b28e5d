package session

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("SHORTLY_JWT_SECRET", testSecret)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTTLRemember != 30*24*time.Hour {
		t.Fatalf("RefreshTTLRemember = %v, want 720h", cfg.RefreshTTLRemember)
	}
	if cfg.RefreshTTLShort != 24*time.Hour {
		t.Fatalf("RefreshTTLShort = %v, want 24h", cfg.RefreshTTLShort)
	}
	if !cfg.CompareIP {
		t.Fatalf("CompareIP = false, want true")
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("SHORTLY_JWT_SECRET", "")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("SHORTLY_JWT_SECRET", testSecret)
	t.Setenv("SHORTLY_AUTH_ACCESS_TTL", "5m")
	t.Setenv("SHORTLY_AUTH_COMPARE_IP", "false")
	t.Setenv("SHORTLY_AUTH_REFRESH_TOKEN_BYTES", "48")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("AccessTokenTTL = %v, want 5m", cfg.AccessTokenTTL)
	}
	if cfg.CompareIP {
		t.Fatalf("CompareIP = true, want false")
	}
	if cfg.RefreshTokenBytes != 48 {
		t.Fatalf("RefreshTokenBytes = %d, want 48", cfg.RefreshTokenBytes)
	}
}

func TestLoadConfigFromEnv_InvalidTTLOrdering(t *testing.T) {
	t.Setenv("SHORTLY_JWT_SECRET", testSecret)
	t.Setenv("SHORTLY_AUTH_REFRESH_TTL_REMEMBER", "1h")
	t.Setenv("SHORTLY_AUTH_REFRESH_TTL_SHORT", "24h")

	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestRefreshTTL(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.RefreshTTL(true) != cfg.RefreshTTLRemember {
		t.Fatalf("remember TTL mismatch")
	}
	if cfg.RefreshTTL(false) != cfg.RefreshTTLShort {
		t.Fatalf("short TTL mismatch")
	}
}
