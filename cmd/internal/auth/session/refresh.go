package session

import (
	"crypto/rand"
	"encoding/base64"

	"shortly/cmd/security/token"

	"github.com/oklog/ulid/v2"
)

// newSessionID returns a fresh opaque session identifier.
// ULIDs draw their entropy from crypto/rand.
func newSessionID() string {
	return ulid.Make().String()
}

// newOpaqueRefreshToken generates a random refresh token and the digest the
// store persists. The plain value is revealed to the caller exactly once.
func newOpaqueRefreshToken(nBytes int) (plain string, digest string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)
	digest = token.HashRefreshTokenHex(plain)

	return plain, digest, nil
}

func hashRefreshTokenHex(s string) string {
	return token.HashRefreshTokenHex(s)
}
