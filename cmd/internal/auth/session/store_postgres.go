package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rowColumns = `
	id, user_id, session_id, token_hash, user_agent, ip_address,
	expires_at, remember, is_active, created_at, last_used_at
`

// PostgresStore implements Store using PostgreSQL (shortly.refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed refresh-token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new active refresh-token row and returns its id.
func (s *PostgresStore) Create(
	ctx context.Context,
	now time.Time,
	userID int64,
	sessionID string,
	tokenHash string,
	fp Fingerprint,
	expiresAt time.Time,
	remember bool,
) (int64, error) {
	var id int64

	err := s.pool.QueryRow(ctx, `
		INSERT INTO shortly.refresh_tokens (
			user_id, session_id, token_hash, user_agent, ip_address,
			expires_at, remember, is_active, created_at, last_used_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, TRUE, $8, NULL
		)
		RETURNING id
	`, userID, sessionID, tokenHash, fp.UserAgent, fp.IPAddress, expiresAt, remember, now).Scan(&id)
	if err != nil {
		return 0, storeErr(err)
	}

	return id, nil
}

// GetBySessionID loads the refresh-token row for a session.
func (s *PostgresStore) GetBySessionID(ctx context.Context, sessionID string) (Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, `
		SELECT `+rowColumns+`
		FROM shortly.refresh_tokens
		WHERE session_id = $1
	`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionInvalid
	}
	if err != nil {
		return Row{}, storeErr(err)
	}

	return row, nil
}

// Deactivate flips is_active to false via compare-and-swap on the previous
// active state. Zero rows affected means another caller consumed the row.
func (s *PostgresStore) Deactivate(ctx context.Context, now time.Time, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE shortly.refresh_tokens
		SET is_active = FALSE, last_used_at = $2
		WHERE id = $1 AND is_active = TRUE
	`, id, now)
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeactivateBySession deactivates the active row for a session (idempotent).
func (s *PostgresStore) DeactivateBySession(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE shortly.refresh_tokens
		SET is_active = FALSE, last_used_at = $2
		WHERE session_id = $1 AND is_active = TRUE
	`, sessionID, now)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// RevokeAll deactivates every active row for a user, optionally sparing one
// session (idempotent).
func (s *PostgresStore) RevokeAll(ctx context.Context, now time.Time, userID int64, exceptSessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE shortly.refresh_tokens
		SET is_active = FALSE, last_used_at = $2
		WHERE user_id = $1 AND is_active = TRUE
		  AND ($3 = '' OR session_id <> $3)
	`, userID, now, exceptSessionID)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner) (Row, error) {
	var row Row
	err := sc.Scan(
		&row.ID,
		&row.UserID,
		&row.SessionID,
		&row.TokenHash,
		&row.UserAgent,
		&row.IPAddress,
		&row.ExpiresAt,
		&row.Remember,
		&row.IsActive,
		&row.CreatedAt,
		&row.LastUsedAt,
	)
	return row, err
}

// storeErr tags persistence failures so callers can tell outages apart from
// authentication failures.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
