package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.ReadTimeout != 15*time.Second || cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("DBMaxConns = %d, want 10", cfg.DBMaxConns)
	}
	if cfg.RequireTokenHMAC {
		t.Fatalf("RequireTokenHMAC = true, want false by default")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SHORTLY_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SHORTLY_LOG_LEVEL", "debug")
	t.Setenv("SHORTLY_DB_MAX_CONNS", "25")
	t.Setenv("SHORTLY_HTTP_READ_TIMEOUT", "30s")
	t.Setenv("SHORTLY_REQUIRE_TOKEN_HMAC", "true")

	cfg := LoadConfig()

	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("DBMaxConns = %d, want 25", cfg.DBMaxConns)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("ReadTimeout = %v, want 30s", cfg.ReadTimeout)
	}
	if !cfg.RequireTokenHMAC {
		t.Fatalf("RequireTokenHMAC = false, want true")
	}
}

func TestLoadConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("SHORTLY_DB_MAX_CONNS", "not-a-number")
	t.Setenv("SHORTLY_HTTP_READ_TIMEOUT", "-5s")

	cfg := LoadConfig()

	if cfg.DBMaxConns != 10 {
		t.Fatalf("DBMaxConns = %d, want default 10", cfg.DBMaxConns)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("ReadTimeout = %v, want default 15s", cfg.ReadTimeout)
	}
}
