package links

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Integration tests are enabled when SHORTLY_DATABASE_URL is set.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresLinks_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbURL := os.Getenv("SHORTLY_DATABASE_URL")
	if dbURL == "" {
		t.Skip("SHORTLY_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustLinksPool(ctx, t, dbURL)
	defer pool.Close()

	store := NewPostgresStore(pool)
	code := uniqueTestCode()
	t.Cleanup(func() { cleanupLink(ctx, pool, code) })

	now := time.Now().UTC()
	created, err := store.CreateLink(ctx, CreateLinkInput{
		OriginalURL: "https://example.com/docs",
		ShortCode:   code,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("CreateLink: expected assigned id")
	}
	if created.Clicks != 0 {
		t.Fatalf("CreateLink: clicks = %d, want 0", created.Clicks)
	}

	got, err := store.GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.ID != created.ID || got.OriginalURL != "https://example.com/docs" {
		t.Fatalf("GetByCode: got %+v", got)
	}
	if got.UserID != nil || got.Protected() {
		t.Fatalf("expected anonymous unprotected link, got %+v", got)
	}
}

func TestPostgresLinks_DuplicateCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbURL := os.Getenv("SHORTLY_DATABASE_URL")
	if dbURL == "" {
		t.Skip("SHORTLY_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustLinksPool(ctx, t, dbURL)
	defer pool.Close()

	store := NewPostgresStore(pool)
	code := uniqueTestCode()
	t.Cleanup(func() { cleanupLink(ctx, pool, code) })

	now := time.Now().UTC()
	in := CreateLinkInput{OriginalURL: "https://example.com/a", ShortCode: code, Now: now}
	if _, err := store.CreateLink(ctx, in); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	_, err := store.CreateLink(ctx, in)
	if !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestPostgresLinks_GetByCode_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbURL := os.Getenv("SHORTLY_DATABASE_URL")
	if dbURL == "" {
		t.Skip("SHORTLY_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustLinksPool(ctx, t, dbURL)
	defer pool.Close()

	store := NewPostgresStore(pool)
	_, err := store.GetByCode(ctx, uniqueTestCode())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresLinks_IncrementClicks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbURL := os.Getenv("SHORTLY_DATABASE_URL")
	if dbURL == "" {
		t.Skip("SHORTLY_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustLinksPool(ctx, t, dbURL)
	defer pool.Close()

	store := NewPostgresStore(pool)
	code := uniqueTestCode()
	t.Cleanup(func() { cleanupLink(ctx, pool, code) })

	now := time.Now().UTC()
	created, err := store.CreateLink(ctx, CreateLinkInput{
		OriginalURL: "https://example.com/clicks",
		ShortCode:   code,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	for range 3 {
		if err := store.IncrementClicks(ctx, created.ID); err != nil {
			t.Fatalf("IncrementClicks: %v", err)
		}
	}

	got, err := store.GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.Clicks != 3 {
		t.Fatalf("clicks = %d, want 3", got.Clicks)
	}
}

func mustLinksPool(ctx context.Context, t *testing.T, dbURL string) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}

	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipLinksIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (SHORTLY_DATABASE_URL set): %v", err)
		}
		t.Fatalf("pool.Ping: %v", err)
	}

	return pool
}

func shouldSkipLinksIntegration(err error) bool {
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

// uniqueTestCode derives a 16-char code (the max length) from a ULID so
// parallel runs never collide.
func uniqueTestCode() string {
	return strings.ToLower(ulid.Make().String()[10:])
}

func cleanupLink(ctx context.Context, pool *pgxpool.Pool, code string) {
	_, _ = pool.Exec(ctx, `DELETE FROM shortly.links WHERE short_code = $1`, code)
}
