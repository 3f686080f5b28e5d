package app

import (
	"strings"
	"testing"

	"shortly/cmd/security/token"
)

func TestValidateSecurityConfig_PolicyOff(t *testing.T) {
	t.Setenv(token.HMACEnvKey, "")

	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: false}); err != nil {
		t.Fatalf("policy off must always pass: %v", err)
	}
}

func TestValidateSecurityConfig_MissingKey(t *testing.T) {
	t.Setenv(token.HMACEnvKey, "")

	err := ValidateSecurityConfig(Config{RequireTokenHMAC: true})
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected missing-key error, got %v", err)
	}
}

func TestValidateSecurityConfig_ShortKey(t *testing.T) {
	t.Setenv(token.HMACEnvKey, "too-short")

	err := ValidateSecurityConfig(Config{RequireTokenHMAC: true})
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short-key error, got %v", err)
	}
}

func TestValidateSecurityConfig_OK(t *testing.T) {
	t.Setenv(token.HMACEnvKey, strings.Repeat("k", 32))

	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err != nil {
		t.Fatalf("ValidateSecurityConfig: %v", err)
	}
}
