package session

import "errors"

var (
	// ErrInvalidCredentials is returned on login failure. The message is
	// deliberately identical for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired is returned when an access token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned when an access token is malformed or its
	// signature cannot be validated.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionInvalid is returned when refresh rotation fails: unknown or
	// reused refresh token, expired grant, fingerprint mismatch, or missing
	// session id. The caller must re-authenticate; all failure causes are
	// indistinguishable to avoid token probing.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrStoreUnavailable is returned when the persistence layer cannot be
	// reached. Surfaced as a 5xx, never as an authentication failure.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
