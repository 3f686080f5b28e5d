// Package authapi exposes the authentication HTTP surface: registration,
// login, refresh rotation, logout, identity lookup and profile updates.
//
// Sessions are cookie-bound: access_token, refresh_token and session_id are
// issued together and cleared together on every authentication failure.
package authapi
