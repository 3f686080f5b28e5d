package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"shortly/cmd/internal/auth/session"
	"shortly/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// End-to-end auth flow against a real Postgres, enabled when
// SHORTLY_DATABASE_URL is set.

type authTestEnv struct {
	srv    *httptest.Server
	client *http.Client
	pool   *pgxpool.Pool
}

func newAuthTestEnv(ctx context.Context, t *testing.T) *authTestEnv {
	t.Helper()

	dbURL := os.Getenv("SHORTLY_DATABASE_URL")
	if dbURL == "" {
		t.Skip("SHORTLY_DATABASE_URL is not set; skipping Postgres integration test")
	}

	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}
	poolCfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipAuthIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (SHORTLY_DATABASE_URL set): %v", err)
		}
		t.Fatalf("pool.Ping: %v", err)
	}
	t.Cleanup(pool.Close)

	sessCfg := session.DefaultConfig()
	sessCfg.JWTSecret = []byte("0123456789abcdef0123456789abcdef")

	pwCfg := password.DefaultConfig()
	// Keep hashing cheap in tests.
	pwCfg.Params.MemoryKiB = 8 * 1024
	pwCfg.Params.Iterations = 1

	apiCfg := LoadConfigFromEnv()
	apiCfg.CookieSecure = false // plain-HTTP test server

	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), pool, apiCfg, sessCfg, pwCfg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}

	return &authTestEnv{
		srv:    srv,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		pool:   pool,
	}
}

func (e *authTestEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	return e.doJSON(t, http.MethodPost, path, body)
}

func (e *authTestEnv) doJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "shortly-test/1.0")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeAuthResponse(t *testing.T, resp *http.Response) authResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return out
}

func cleanupAuthUser(ctx context.Context, pool *pgxpool.Pool, email string) {
	var id int64
	if err := pool.QueryRow(ctx, `SELECT id FROM shortly.users WHERE email = $1`, email).Scan(&id); err != nil {
		return
	}
	_, _ = pool.Exec(ctx, `DELETE FROM shortly.audit_log WHERE user_id = $1`, id)
	_, _ = pool.Exec(ctx, `DELETE FROM shortly.refresh_tokens WHERE user_id = $1`, id)
	_, _ = pool.Exec(ctx, `DELETE FROM shortly.users WHERE id = $1`, id)
}

func uniqueCredentials() (username, email string) {
	suffix := strings.ToLower(ulid.Make().String()[16:])
	return "u_" + suffix, "it_" + suffix + "@example.com"
}

func TestAuthFlow_RegisterLoginMeLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAuthTestEnv(ctx, t)

	username, email := uniqueCredentials()
	t.Cleanup(func() { cleanupAuthUser(ctx, env.pool, email) })

	// Register issues a full session.
	resp := env.postJSON(t, "/api/auth/register", registerRequest{
		Username: username,
		Email:    email,
		Password: "Str0ngpass1",
		Remember: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	reg := decodeAuthResponse(t, resp)
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatalf("register: expected tokens in body")
	}
	if reg.User.Username != username || reg.User.Email != email {
		t.Fatalf("register: unexpected user payload %+v", reg.User)
	}

	// Duplicate email conflicts.
	otherUsername, _ := uniqueCredentials()
	resp = env.postJSON(t, "/api/auth/register", registerRequest{
		Username: otherUsername,
		Email:    email,
		Password: "Str0ngpass1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// Wrong password and unknown email answer identically.
	resp = env.postJSON(t, "/api/auth/login", loginRequest{Email: email, Password: "WrongPass1"})
	wrongPw := readErrorBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password login status = %d", resp.StatusCode)
	}
	resp = env.postJSON(t, "/api/auth/login", loginRequest{Email: "nobody-" + email, Password: "WrongPass1"})
	unknown := readErrorBody(t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown email login status = %d", resp.StatusCode)
	}
	if wrongPw != unknown {
		t.Fatalf("credential failures must be indistinguishable: %q vs %q", wrongPw, unknown)
	}

	// Correct login succeeds and binds cookies.
	resp = env.postJSON(t, "/api/auth/login", loginRequest{Email: email, Password: "Str0ngpass1", Remember: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	login := decodeAuthResponse(t, resp)

	// /me via bearer token.
	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	req.Header.Set("User-Agent", "shortly-test/1.0")
	meResp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if meResp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", meResp.StatusCode)
	}
	var me meResponse
	if err := json.NewDecoder(meResp.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	_ = meResp.Body.Close()
	if me.User.Email != email {
		t.Fatalf("me: unexpected user %+v", me.User)
	}

	// Logout clears the session; twice is fine.
	for i := 0; i < 2; i++ {
		resp = env.postJSON(t, "/api/auth/logout", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("logout(%d) status = %d", i, resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	// The refresh grant is dead after logout.
	resp = env.postJSON(t, "/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestAuthFlow_RefreshRotationAndReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAuthTestEnv(ctx, t)

	username, email := uniqueCredentials()
	t.Cleanup(func() { cleanupAuthUser(ctx, env.pool, email) })

	resp := env.postJSON(t, "/api/auth/register", registerRequest{
		Username: username,
		Email:    email,
		Password: "Str0ngpass1",
		Remember: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	reg := decodeAuthResponse(t, resp)

	// Remember the pre-rotation cookies for the replay below.
	srvURL := mustParseURL(t, env.srv.URL)
	oldCookies := env.client.Jar.Cookies(srvURL)

	resp = env.postJSON(t, "/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	rotated := decodeAuthResponse(t, resp)
	if rotated.RefreshToken == reg.RefreshToken {
		t.Fatalf("refresh must rotate the refresh token")
	}

	// Replaying the consumed grant fails and clears cookies.
	env.client.Jar.SetCookies(srvURL, oldCookies)
	resp = env.postJSON(t, "/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed refresh status = %d, want 401", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestAuthFlow_ProfilePasswordChangeRevokesOtherSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAuthTestEnv(ctx, t)

	username, email := uniqueCredentials()
	t.Cleanup(func() { cleanupAuthUser(ctx, env.pool, email) })

	resp := env.postJSON(t, "/api/auth/register", registerRequest{
		Username: username,
		Email:    email,
		Password: "Str0ngpass1",
		Remember: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// A second device logs in with its own cookie jar.
	otherJar, _ := cookiejar.New(nil)
	other := &authTestEnv{srv: env.srv, client: &http.Client{Jar: otherJar, Timeout: 10 * time.Second}, pool: env.pool}
	resp = other.postJSON(t, "/api/auth/login", loginRequest{Email: email, Password: "Str0ngpass1", Remember: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second login status = %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// First device changes the password.
	newPw := "N3wpassword9"
	resp = env.doJSON(t, http.MethodPut, "/api/auth/profile", profileRequest{
		Password:        &newPw,
		CurrentPassword: "Str0ngpass1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile update status = %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// The second device's refresh grant is revoked.
	resp = other.postJSON(t, "/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("other device refresh status = %d, want 401", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// The changing device keeps its session.
	resp = env.postJSON(t, "/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current device refresh status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// And the new password works.
	resp = env.postJSON(t, "/api/auth/login", loginRequest{Email: email, Password: newPw})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password status = %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func readErrorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out.Error.Code + ":" + out.Error.Message
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func shouldSkipAuthIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}
