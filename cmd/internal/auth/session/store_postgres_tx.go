package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transaction-scoped variants used by refresh rotation. The lookup, the
// conditional deactivation of the consumed row and the insert of its
// replacement must all land in the same transaction.

func getForRotationTx(ctx context.Context, tx pgx.Tx, tokenHash, sessionID string) (Row, error) {
	row, err := scanRow(tx.QueryRow(ctx, `
		SELECT `+rowColumns+`
		FROM shortly.refresh_tokens
		WHERE token_hash = $1 AND session_id = $2
	`, tokenHash, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionInvalid
	}
	if err != nil {
		return Row{}, storeErr(err)
	}

	return row, nil
}

func deactivateTx(ctx context.Context, tx pgx.Tx, now time.Time, id int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE shortly.refresh_tokens
		SET is_active = FALSE, last_used_at = $2
		WHERE id = $1 AND is_active = TRUE
	`, id, now)
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func createTx(
	ctx context.Context,
	tx pgx.Tx,
	now time.Time,
	userID int64,
	sessionID string,
	tokenHash string,
	fp Fingerprint,
	expiresAt time.Time,
	remember bool,
) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO shortly.refresh_tokens (
			user_id, session_id, token_hash, user_agent, ip_address,
			expires_at, remember, is_active, created_at, last_used_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, TRUE, $8, NULL
		)
	`, userID, sessionID, tokenHash, fp.UserAgent, fp.IPAddress, expiresAt, remember, now)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func usernameByIDTx(ctx context.Context, tx pgx.Tx, userID int64) (string, error) {
	var username string
	err := tx.QueryRow(ctx, `
		SELECT username FROM shortly.users WHERE id = $1
	`, userID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrSessionInvalid
	}
	if err != nil {
		return "", storeErr(err)
	}
	return username, nil
}
