package authapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Login throttling counts recent failures recorded in the audit trail, so the
// policy needs no extra state and survives restarts.

func (h *Handler) checkLoginIPThrottle(ctx context.Context, ip string, now time.Time) (bool, time.Duration, error) {
	if strings.TrimSpace(ip) == "" || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.LoginIPWindow)
	count, err := countLoginFailuresByIP(ctx, h.pool, ip, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.LoginIPMax {
		return true, h.cfg.LoginIPWindow, nil
	}
	return false, 0, nil
}

func (h *Handler) checkLoginIdentifierThrottle(ctx context.Context, identifier string, now time.Time) (bool, time.Duration, error) {
	if strings.TrimSpace(identifier) == "" || h.cfg.LoginUserMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.LoginUserWindow)
	count, err := countLoginFailuresByIdentifier(ctx, h.pool, identifier, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.LoginUserMax {
		return true, h.cfg.LoginUserWindow, nil
	}
	return false, 0, nil
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

// ---- audit queries ----

func countLoginFailuresByIP(ctx context.Context, pool *pgxpool.Pool, ip string, since time.Time) (int, error) {
	if pool == nil {
		return 0, nil
	}
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM shortly.audit_log
		WHERE action = 'auth.login.failed'
		  AND ip = $1
		  AND created_at >= $2
	`, ip, since).Scan(&n)
	return n, err
}

func countLoginFailuresByIdentifier(ctx context.Context, pool *pgxpool.Pool, identifier string, since time.Time) (int, error) {
	if pool == nil {
		return 0, nil
	}
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM shortly.audit_log
		WHERE action = 'auth.login.failed'
		  AND meta->>'identifier' = $1
		  AND created_at >= $2
	`, identifier, since).Scan(&n)
	return n, err
}
