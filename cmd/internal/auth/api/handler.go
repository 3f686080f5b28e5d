package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shortly/cmd/identity"
	"shortly/cmd/internal/auth/session"
	"shortly/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires the auth HTTP endpoints to the identity and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	pool *pgxpool.Pool

	identity identity.Store
	sessions *session.Service
	pw       password.Config

	dummyHash string
}

// NewHandler constructs an auth Handler with its stores and session service.
func NewHandler(log *slog.Logger, pool *pgxpool.Pool, cfg Config, sessCfg session.Config, pwCfg password.Config) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if pool == nil {
		return nil, errors.New("auth: nil db pool")
	}

	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}

	tokens, err := session.NewHS256Manager(sessCfg)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		pool:     pool,
		identity: idStore,
		sessions: session.NewService(sessCfg, pool, session.NewPostgresStore(pool), tokens),
		pw:       pwCfg,
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := pwCfg.Hash("dummy-password-timing-0"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/auth/profile", h.handleProfile)
}

// SessionService exposes the underlying session service for other handlers
// that need access-token verification.
func (h *Handler) SessionService() *session.Service {
	if h == nil {
		return nil
	}
	return h.sessions
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if !identity.ValidUsername(req.Username) {
		writeError(w, http.StatusBadRequest, "invalid_username", "username must be 3-16 characters: letters, digits, underscore or dash")
		return
	}
	if !identity.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid_email", "invalid email address")
		return
	}

	hash, err := h.pw.Hash(req.Password)
	if err != nil {
		if isPolicyError(err) {
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
			return
		}
		h.log.Error("auth.register.hash.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.identity.CreateUser(ctx, identity.CreateUserInput{
		Username:     identity.NormalizeUsername(req.Username),
		Email:        identity.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		var conflict identity.ConflictError
		switch {
		case errors.As(err, &conflict):
			writeError(w, http.StatusConflict, "conflict", conflictMessage(conflict))
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.register.create.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		}
		return
	}

	issued, err := h.sessions.Issue(ctx, now, user.ID, user.Username, h.fingerprint(r), req.Remember)
	if err != nil {
		h.log.Error("auth.register.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditRegister(ctx, user.ID, issued.SessionID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.setSessionCookies(w, issued)
	writeJSON(w, http.StatusCreated, authResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		User:         user.Summary(),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	// Throttle before touching the users table.
	if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditLoginRateLimited(ctx, ip, ua, email, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter, err := h.checkLoginIdentifierThrottle(ctx, email, now); err != nil {
		h.log.Error("auth.login.throttle_identifier.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditLoginRateLimited(ctx, ip, ua, email, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	user, err := h.identity.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsUnavailable(err) {
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
			return
		}
		// Timing resistance: run a dummy verify so unknown emails cost the
		// same as wrong passwords, and answer identically.
		if h.dummyHash != "" {
			_, _ = h.pw.Verify(h.dummyHash, req.Password)
		}
		h.auditLoginFailed(ctx, nil, ip, ua, email, "not_found")
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	ok, err := h.pw.Verify(user.PasswordHash, req.Password)
	if err != nil || !ok {
		h.auditLoginFailed(ctx, &user.ID, ip, ua, email, "bad_password")
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	issued, err := h.sessions.Issue(ctx, now, user.ID, user.Username, h.fingerprint(r), req.Remember)
	if err != nil {
		h.log.Error("auth.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLoginSuccess(ctx, user.ID, issued.SessionID, ip, ua, email)
	h.setSessionCookies(w, issued)
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		User:         user.Summary(),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	refreshToken := cookieValue(r, h.cfg.RefreshCookieName)
	sessionID := cookieValue(r, h.cfg.SessionCookieName)

	ctx := r.Context()
	now := time.Now().UTC()

	issued, ok := h.rotate(ctx, w, r, now, refreshToken, sessionID)
	if !ok {
		return
	}

	user, err := h.identity.GetUserByID(ctx, issued.UserID)
	if err != nil {
		h.userLookupError(w, err)
		return
	}

	h.setSessionCookies(w, issued)
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		User:         user.Summary(),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	// Logout is idempotent: revoke whatever session the browser still claims
	// and clear the cookies either way.
	if sessionID := cookieValue(r, h.cfg.SessionCookieName); sessionID != "" {
		if err := h.sessions.RevokeSession(ctx, now, sessionID); err != nil {
			h.log.Error("auth.logout.revoke.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
			return
		}
		h.auditLogout(ctx, sessionID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	}

	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	// Fast path: a valid access token (bearer header or cookie) answers
	// without touching the store.
	if claims, err := h.sessions.VerifyAccess(h.accessToken(r), now); err == nil {
		user, err := h.identity.GetUserByID(ctx, claims.UserID)
		if err != nil {
			h.userLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, meResponse{User: user.Summary()})
		return
	}

	// Slow path: rotate the refresh grant and re-bind the cookies.
	refreshToken := cookieValue(r, h.cfg.RefreshCookieName)
	sessionID := cookieValue(r, h.cfg.SessionCookieName)
	issued, ok := h.rotate(ctx, w, r, now, refreshToken, sessionID)
	if !ok {
		return
	}

	user, err := h.identity.GetUserByID(ctx, issued.UserID)
	if err != nil {
		h.userLookupError(w, err)
		return
	}

	h.setSessionCookies(w, issued)
	writeJSON(w, http.StatusOK, meResponse{User: user.Summary()})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := trimPtr(req.Username)
	email := trimPtr(req.Email)
	newPassword := req.Password
	if username == nil && email == nil && newPassword == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "nothing to update")
		return
	}
	if username != nil && !identity.ValidUsername(*username) {
		writeError(w, http.StatusBadRequest, "invalid_username", "username must be 3-16 characters: letters, digits, underscore or dash")
		return
	}
	if email != nil && !identity.ValidEmail(*email) {
		writeError(w, http.StatusBadRequest, "invalid_email", "invalid email address")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.identity.GetUserByID(ctx, claims.UserID)
	if err != nil {
		h.userLookupError(w, err)
		return
	}

	sensitive := email != nil || newPassword != nil

	// Credential-bearing changes re-prove the current password.
	if sensitive {
		okPw, err := h.pw.Verify(user.PasswordHash, req.CurrentPassword)
		if err != nil || !okPw {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
			return
		}
	}

	var changed []string

	if username != nil {
		if err := h.identity.UpdateUsername(ctx, user.ID, identity.NormalizeUsername(*username)); err != nil {
			h.updateError(w, err)
			return
		}
		user.Username = identity.NormalizeUsername(*username)
		changed = append(changed, "username")
	}
	if email != nil {
		if err := h.identity.UpdateEmail(ctx, user.ID, identity.NormalizeEmail(*email)); err != nil {
			h.updateError(w, err)
			return
		}
		user.Email = identity.NormalizeEmail(*email)
		changed = append(changed, "email")
	}
	if newPassword != nil {
		hash, err := h.pw.Hash(*newPassword)
		if err != nil {
			if isPolicyError(err) {
				writeError(w, http.StatusBadRequest, "weak_password", err.Error())
				return
			}
			h.log.Error("auth.profile.hash.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		if err := h.identity.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			h.updateError(w, err)
			return
		}
		changed = append(changed, "password")
	}

	// Email or password changes invalidate every other device; the session
	// making the change stays alive.
	if sensitive {
		currentSession := cookieValue(r, h.cfg.SessionCookieName)
		if err := h.sessions.RevokeAll(ctx, now, user.ID, currentSession); err != nil {
			h.log.Error("auth.profile.revoke_all.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
			return
		}
	}

	h.auditProfileUpdated(ctx, user.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent(), changed)
	writeJSON(w, http.StatusOK, meResponse{User: user.Summary()})
}

// ---- helpers ----

// rotate runs refresh rotation and maps failures to HTTP responses. On any
// authentication failure the cookies are cleared so the browser stops
// presenting a dead grant.
func (h *Handler) rotate(ctx context.Context, w http.ResponseWriter, r *http.Request, now time.Time, refreshToken, sessionID string) (session.Issued, bool) {
	if refreshToken == "" || sessionID == "" {
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", "session is not active")
		return session.Issued{}, false
	}

	issued, err := h.sessions.Rotate(ctx, now, refreshToken, sessionID, h.fingerprint(r))
	if err != nil {
		ip := clientIP(r, h.cfg.TrustProxy)
		ua := strings.TrimSpace(r.UserAgent())
		switch {
		case errors.Is(err, session.ErrSessionInvalid):
			h.auditRefreshRejected(ctx, sessionID, ip, ua)
			h.clearSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "unauthorized", "session is not active")
		case errors.Is(err, session.ErrStoreUnavailable):
			h.log.Error("auth.refresh.store.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return session.Issued{}, false
	}

	h.auditRefreshSuccess(ctx, issued.UserID, issued.SessionID, clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	return issued, true
}

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.AccessClaims, bool) {
	token := h.accessToken(r)
	if token == "" {
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return session.AccessClaims{}, false
	}
	claims, err := h.sessions.VerifyAccess(token, time.Now().UTC())
	if err != nil {
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
		return session.AccessClaims{}, false
	}
	return claims, true
}

// accessToken prefers the Authorization header, falling back to the access
// cookie for browser clients.
func (h *Handler) accessToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return cookieValue(r, h.cfg.AccessCookieName)
}

func (h *Handler) fingerprint(r *http.Request) session.Fingerprint {
	return session.Fingerprint{
		UserAgent: strings.TrimSpace(r.UserAgent()),
		IPAddress: clientIP(r, h.cfg.TrustProxy),
	}
}

func (h *Handler) userLookupError(w http.ResponseWriter, err error) {
	if identity.IsNotFound(err) {
		h.clearSessionCookies(w)
		writeError(w, http.StatusUnauthorized, "unauthorized", "user not found")
		return
	}
	h.log.Error("auth.user.lookup.fail", "err", err)
	writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
}

func (h *Handler) updateError(w http.ResponseWriter, err error) {
	var conflict identity.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "conflict", conflictMessage(conflict))
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
	case identity.IsNotFound(err):
		writeError(w, http.StatusUnauthorized, "unauthorized", "user not found")
	default:
		h.log.Error("auth.profile.update.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
	}
}

func conflictMessage(c identity.ConflictError) string {
	switch c.Field {
	case "email":
		return "email is already in use"
	case "username":
		return "username is already in use"
	default:
		return "username or email is already in use"
	}
}

func isPolicyError(err error) bool {
	return errors.Is(err, password.ErrWeakPassword) ||
		errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
