package links

import (
	"strings"
	"testing"
)

func TestValidCode(t *testing.T) {
	t.Parallel()

	valid := []string{"abc", "my-link", "My_Link42", "abcdefghijklmnop"}
	for _, c := range valid {
		if !ValidCode(c) {
			t.Fatalf("ValidCode(%q) = false, want true", c)
		}
	}

	invalid := []string{
		"", "ab", "abcdefghijklmnopq", "has space", "uniçode", "slash/",
		// Reserved words shadow application routes, in any case.
		"links", "auth", "perfil", "api", "admin", "API", "Admin",
	}
	for _, c := range invalid {
		if ValidCode(c) {
			t.Fatalf("ValidCode(%q) = true, want false", c)
		}
	}
}

func TestGenerateCode(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 32 {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != generatedLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), generatedLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		if seen[code] {
			t.Fatalf("duplicate generated code %q", code)
		}
		seen[code] = true
	}
}
