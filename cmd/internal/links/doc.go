// Package links implements URL shortening: code generation and validation,
// link persistence, resolution with click counting, and per-link statistics.
//
// Links may be password-protected and may expire. Expired links resolve as
// not found; physical cleanup is an external job's concern.
package links
