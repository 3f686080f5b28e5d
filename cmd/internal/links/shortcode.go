package links

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	codeAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	generatedLength = 8
)

var codeRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,16}$`)

// Route prefixes and app pages a short code must never shadow.
var reservedCodes = map[string]struct{}{
	"links":  {},
	"auth":   {},
	"perfil": {},
	"api":    {},
	"admin":  {},
}

// ValidCode reports whether a custom short code is acceptable: 3 to 16
// characters of letters, digits, underscore or dash, and not a reserved word.
func ValidCode(code string) bool {
	code = strings.TrimSpace(code)
	if !codeRe.MatchString(code) {
		return false
	}
	_, reserved := reservedCodes[strings.ToLower(code)]
	return !reserved
}

// generateCode returns a random 8-character alphanumeric code.
func generateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, generatedLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
