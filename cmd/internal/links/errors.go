package links

import "errors"

// Public, stable errors for callers.
var (
	ErrNotFound         = errors.New("link not found")
	ErrInvalidURL       = errors.New("invalid original url")
	ErrInvalidCode      = errors.New("invalid short code")
	ErrInvalidExpiry    = errors.New("expiry must be in the future")
	ErrCodeTaken        = errors.New("short code already in use")
	ErrPasswordRequired = errors.New("link requires a password")
	ErrWrongPassword    = errors.New("wrong link password")
	ErrUnavailable      = errors.New("link store unavailable")
)
