// Package password implements Argon2id password hashing with a PHC-encoded
// output format and an explicit, env-tunable password policy.
//
// Verification is constant-time and never panics on malformed input: a hash
// that cannot be decoded yields (false, ErrInvalidHash).
package password
