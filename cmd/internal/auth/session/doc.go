// Package session implements the authentication session lifecycle: access
// token issuance and verification, refresh-token rotation with replay
// detection, and per-session/per-user revocation.
//
// Access tokens are short-lived HS256 JWTs and verify statelessly. Refresh
// tokens are opaque random strings stored only as digests in Postgres
// (see cmd/security/token), bound to a session id and to the client
// fingerprint (user agent, IP) captured at issuance. Rotation exchanges an
// active refresh token for a brand-new session id, refresh token and access
// token inside a single transaction; the consumed row is deactivated with a
// conditional update so concurrent replays of the same token cannot both
// succeed. Deactivated rows are retained for audit.
//
// HTTP transport (cookies, handlers) is intentionally out of scope here.
package session
