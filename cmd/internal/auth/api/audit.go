package authapi

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

func (h *Handler) auditRegister(ctx context.Context, userID int64, sessionID, ip, ua string) {
	h.insertAudit(ctx, "auth.register", &userID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditLoginFailed(ctx context.Context, userID *int64, ip, ua, identifier, reason string) {
	h.insertAudit(ctx, "auth.login.failed", userID, nil, ip, ua, map[string]any{
		"identifier": identifier,
		"reason":     reason,
	})
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID int64, sessionID, ip, ua, identifier string) {
	h.insertAudit(ctx, "auth.login.success", &userID, &sessionID, ip, ua, map[string]any{
		"identifier": identifier,
	})
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip, ua, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.login.rate_limited", nil, nil, ip, ua, map[string]any{
		"identifier":    identifier,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, userID int64, sessionID, ip, ua string) {
	h.insertAudit(ctx, "auth.refresh.success", &userID, &sessionID, ip, ua, nil)
}

func (h *Handler) auditRefreshRejected(ctx context.Context, sessionID, ip, ua string) {
	var sess *string
	if sessionID != "" {
		sess = &sessionID
	}
	h.insertAudit(ctx, "auth.refresh.rejected", nil, sess, ip, ua, nil)
}

func (h *Handler) auditLogout(ctx context.Context, sessionID, ip, ua string) {
	h.insertAudit(ctx, "auth.logout", nil, &sessionID, ip, ua, nil)
}

func (h *Handler) auditProfileUpdated(ctx context.Context, userID int64, ip, ua string, fields []string) {
	h.insertAudit(ctx, "auth.profile.updated", &userID, nil, ip, ua, map[string]any{
		"fields": fields,
	})
}

func (h *Handler) insertAudit(ctx context.Context, action string, userID *int64, sessionID *string, ip, ua string, meta map[string]any) {
	if h == nil || h.pool == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO shortly.audit_log (
			user_id, session_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, userID, sessionID, action, trimOrNil(ip), trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
