// Package token provides the one-way hashing used to persist refresh tokens.
//
// Plain refresh tokens never reach storage: the store keeps a SHA-256 digest,
// or an HMAC-SHA256 digest when SHORTLY_TOKEN_HMAC_KEY is configured. Either
// way a database leak does not reveal usable refresh tokens, and lookups by
// digest are not susceptible to timing-based token guessing.
package token
