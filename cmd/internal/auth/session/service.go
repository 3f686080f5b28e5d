package session

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service implements the high-level session operations.
//
// It issues sessions (access + refresh + session id), verifies access tokens
// statelessly, performs refresh rotation with replay detection, and supports
// per-session and per-user revocation.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  Store

	// pool is used to create explicit transactions for rotation safety.
	pool *pgxpool.Pool
}

// Issued is the result of issuing or rotating a session.
type Issued struct {
	UserID       int64
	Username     string
	SessionID    string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	Remember     bool
}

// NewService constructs a Service with the provided configuration, store, and
// token manager. The pool is required for refresh rotation, which must run
// inside a single transaction.
func NewService(cfg Config, pool *pgxpool.Pool, store Store, tokens AccessTokenManager) *Service {
	return &Service{cfg: cfg, pool: pool, store: store, tokens: tokens}
}

// Issue creates a new session for an authenticated user and returns fresh
// tokens. The raw refresh token is revealed here and never again.
func (s *Service) Issue(ctx context.Context, now time.Time, userID int64, username string, fp Fingerprint, remember bool) (Issued, error) {
	refreshPlain, refreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}

	sessionID := newSessionID()
	refreshExp := now.Add(s.cfg.RefreshTTL(remember))

	if _, err := s.store.Create(ctx, now, userID, sessionID, refreshHash, fp, refreshExp, remember); err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(userID, username, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		UserID:       userID,
		Username:     username,
		SessionID:    sessionID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
		Remember:     remember,
	}, nil
}

// VerifyAccess verifies an access token. Stateless fast path: no store access,
// safe to run fully in parallel.
func (s *Service) VerifyAccess(token string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(token, now)
}

// RevokeSession deactivates the refresh-token row for a session (logout).
// Idempotent: revoking twice is not an error.
func (s *Service) RevokeSession(ctx context.Context, now time.Time, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	return s.store.DeactivateBySession(ctx, now, sessionID)
}

// RevokeAll deactivates every active refresh token owned by a user, optionally
// sparing the session performing the change. Used after password or email
// changes to force re-authentication of all other devices.
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID int64, exceptSessionID string) error {
	return s.store.RevokeAll(ctx, now, userID, exceptSessionID)
}

// Rotate exchanges a valid refresh token for a brand-new session id, refresh
// token and access token.
//
// Security model:
//   - The row is matched by (token digest, session id) inside a transaction.
//   - Expiry or fingerprint mismatch deactivates the row and fails with
//     ErrSessionInvalid, forcing a full re-login.
//   - The consumed row is deactivated with a conditional update guarded by
//     is_active=true; zero rows affected means a concurrent caller won the
//     race and this rotation fails. No replay can succeed twice.
func (s *Service) Rotate(ctx context.Context, now time.Time, refreshTokenPlain, sessionID string, fp Fingerprint) (Issued, error) {
	refreshTokenPlain = strings.TrimSpace(refreshTokenPlain)
	sessionID = strings.TrimSpace(sessionID)
	// Basic sanity bounds to avoid pathological inputs.
	if refreshTokenPlain == "" || len(refreshTokenPlain) > 4096 || sessionID == "" {
		return Issued{}, ErrSessionInvalid
	}

	// Hash in-memory; the plain token is never persisted or logged.
	refreshHash := hashRefreshTokenHex(refreshTokenPlain)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Issued{}, storeErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row, err := getForRotationTx(ctx, tx, refreshHash, sessionID)
	if err != nil {
		return Issued{}, err
	}

	// A deactivated row presented again is a replay; it stays dead.
	if !row.IsActive {
		return Issued{}, ErrSessionInvalid
	}

	// Expiry and fingerprint checks. Either failure deactivates the token so
	// the anomaly is recorded and the grant cannot be retried.
	if !row.ExpiresAt.After(now) || !row.Fingerprint().Matches(fp, s.cfg.CompareIP) {
		if _, err := deactivateTx(ctx, tx, now, row.ID); err != nil {
			return Issued{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Issued{}, storeErr(err)
		}
		return Issued{}, ErrSessionInvalid
	}

	// Consume the old grant. Compare-and-swap on is_active so two concurrent
	// rotations of the same token cannot both pass.
	ok, err := deactivateTx(ctx, tx, now, row.ID)
	if err != nil {
		return Issued{}, err
	}
	if !ok {
		return Issued{}, ErrSessionInvalid
	}

	username, err := usernameByIDTx(ctx, tx, row.UserID)
	if err != nil {
		return Issued{}, err
	}

	// Replacement grant: new session id, new refresh token, same remember
	// policy, fingerprint re-captured from the current request.
	newRefreshPlain, newRefreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}
	newSessID := newSessionID()
	newRefreshExp := now.Add(s.cfg.RefreshTTL(row.Remember))

	if err := createTx(ctx, tx, now, row.UserID, newSessID, newRefreshHash, fp, newRefreshExp, row.Remember); err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(row.UserID, username, now)
	if err != nil {
		return Issued{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Issued{}, storeErr(err)
	}

	return Issued{
		UserID:       row.UserID,
		Username:     username,
		SessionID:    newSessID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: newRefreshPlain,
		RefreshExp:   newRefreshExp,
		Remember:     row.Remember,
	}, nil
}
