package links

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"shortly/cmd/internal/auth/session"
	"shortly/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HandlerConfig controls the link HTTP surface.
type HandlerConfig struct {
	MaxBodyBytes int64
	MaxExpiry    time.Duration
}

// LoadHandlerConfigFromEnv loads link handler config with safe defaults.
func LoadHandlerConfigFromEnv() HandlerConfig {
	cfg := HandlerConfig{
		MaxBodyBytes: 64 << 10, // 64 KiB
		MaxExpiry:    365 * 24 * time.Hour,
	}
	if v := strings.TrimSpace(os.Getenv("SHORTLY_LINKS_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SHORTLY_LINKS_MAX_EXPIRY")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.MaxExpiry = d
		}
	}
	return cfg
}

// Handler exposes link shortening over HTTP. Creation attributes the link to
// the authenticated user when a valid access token is present; anonymous
// shortening still works.
type Handler struct {
	log      *slog.Logger
	cfg      HandlerConfig
	svc      *Service
	sessions *session.Service
}

// NewHandler constructs a link Handler backed by Postgres.
func NewHandler(log *slog.Logger, pool *pgxpool.Pool, cfg HandlerConfig, pw password.Config, sessions *session.Service) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		svc:      NewService(NewPostgresStore(pool), pw),
		sessions: sessions,
	}
}

// Register wires link routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/short", h.handleCreate)
	mux.HandleFunc("/api/short/{code}/stats", h.handleStats)
	mux.HandleFunc("/short/{code}", h.handleResolve)
}

type createRequest struct {
	URL              string `json:"url"`
	CustomCode       string `json:"custom_code"`
	Password         string `json:"password"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

type createResponse struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type resolveRequest struct {
	Password string `json:"password"`
}

type resolveResponse struct {
	URL string `json:"url"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	now := time.Now().UTC()

	in := CreateInput{
		UserID:      h.optionalUserID(r, now),
		OriginalURL: req.URL,
		CustomCode:  req.CustomCode,
		Password:    req.Password,
	}
	if req.ExpiresInSeconds > 0 {
		d := time.Duration(req.ExpiresInSeconds) * time.Second
		if d > h.cfg.MaxExpiry {
			d = h.cfg.MaxExpiry
		}
		exp := now.Add(d)
		in.ExpiresAt = &exp
	}

	l, err := h.svc.Create(r.Context(), now, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidURL):
			h.writeError(w, http.StatusBadRequest, "invalid_url", "url must be absolute http or https")
		case errors.Is(err, ErrInvalidCode):
			h.writeError(w, http.StatusBadRequest, "invalid_code", "code must be 3-16 characters and not a reserved word")
		case errors.Is(err, ErrInvalidExpiry):
			h.writeError(w, http.StatusBadRequest, "invalid_expiry", "expiry must be in the future")
		case errors.Is(err, ErrCodeTaken):
			h.writeError(w, http.StatusConflict, "code_taken", "short code already in use")
		case errors.Is(err, password.ErrPasswordTooLong), errors.Is(err, password.ErrPasswordTooShort):
			h.writeError(w, http.StatusBadRequest, "invalid_password", "invalid link password")
		default:
			h.log.Error("links.create.fail", "err", err)
			h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, createResponse{
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		ExpiresAt:   l.ExpiresAt,
	})
}

// handleResolve redirects GET requests and answers POSTed passwords with the
// target URL in JSON, so protected links never redirect blind.
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	now := time.Now().UTC()

	switch r.Method {
	case http.MethodGet:
		target, err := h.svc.Resolve(r.Context(), now, code, "")
		if err != nil {
			h.resolveError(w, err)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)

	case http.MethodPost:
		var req resolveRequest
		if err := h.decode(w, r, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
		target, err := h.svc.Resolve(r.Context(), now, code, req.Password)
		if err != nil {
			h.resolveError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, resolveResponse{URL: target})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.svc.Stats(r.Context(), r.PathValue("code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "link not found")
			return
		}
		h.log.Error("links.stats.fail", "err", err)
		h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) resolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "link not found")
	case errors.Is(err, ErrPasswordRequired):
		h.writeError(w, http.StatusUnauthorized, "password_required", "this link requires a password")
	case errors.Is(err, ErrWrongPassword):
		h.writeError(w, http.StatusUnauthorized, "wrong_password", "wrong link password")
	default:
		h.log.Error("links.resolve.fail", "err", err)
		h.writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
	}
}

// optionalUserID attributes the request to a user when a valid access token
// rides along; anonymous requests pass through untouched.
func (h *Handler) optionalUserID(r *http.Request, now time.Time) *int64 {
	if h.sessions == nil {
		return nil
	}
	token := bearerOrCookieToken(r)
	if token == "" {
		return nil
	}
	claims, err := h.sessions.VerifyAccess(token, now)
	if err != nil {
		return nil
	}
	return &claims.UserID
}

func bearerOrCookieToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw != "" {
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie("access_token"); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}
