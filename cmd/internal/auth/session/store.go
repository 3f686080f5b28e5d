package session

import (
	"context"
	"time"
)

// Fingerprint is the client context captured when a refresh token is issued
// and compared again at rotation time to detect token theft.
type Fingerprint struct {
	UserAgent string
	IPAddress string
}

// Matches applies the fingerprint policy: the user agent is always compared;
// the IP is an additional signal, compared only when enabled and both sides
// are known.
func (f Fingerprint) Matches(other Fingerprint, compareIP bool) bool {
	if f.UserAgent != other.UserAgent {
		return false
	}
	if compareIP && f.IPAddress != "" && other.IPAddress != "" && f.IPAddress != other.IPAddress {
		return false
	}
	return true
}

// Row mirrors a shortly.refresh_tokens row.
type Row struct {
	ID         int64
	UserID     int64
	SessionID  string
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	Remember   bool
	IsActive   bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Fingerprint returns the client context recorded at issuance.
func (r Row) Fingerprint() Fingerprint {
	return Fingerprint{UserAgent: r.UserAgent, IPAddress: r.IPAddress}
}

// Store abstracts persistence for refresh-token state.
//
// Rows are deactivated, never deleted; history is retained for audit and
// anomaly detection. Deactivate must be a conditional update guarded by the
// previous is_active=true state so concurrent consumers of the same token
// cannot both succeed.
type Store interface {
	// Create inserts a new active refresh-token row.
	Create(
		ctx context.Context,
		now time.Time,
		userID int64,
		sessionID string,
		tokenHash string,
		fp Fingerprint,
		expiresAt time.Time,
		remember bool,
	) (id int64, err error)

	// GetBySessionID loads the row for a session regardless of state.
	GetBySessionID(ctx context.Context, sessionID string) (Row, error)

	// Deactivate flips is_active to false and stamps last_used_at, guarded by
	// is_active=true. Returns false when the row was already inactive.
	Deactivate(ctx context.Context, now time.Time, id int64) (bool, error)

	// DeactivateBySession deactivates the active row for a session id.
	// Idempotent: deactivating an already-inactive session is not an error.
	DeactivateBySession(ctx context.Context, now time.Time, sessionID string) error

	// RevokeAll deactivates every active row owned by userID, optionally
	// preserving the row whose session id equals exceptSessionID.
	RevokeAll(ctx context.Context, now time.Time, userID int64, exceptSessionID string) error
}
