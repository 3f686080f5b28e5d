// Package app wires the Shortly server runtime: config, logging, metrics,
// database pool, and the auth/link HTTP surfaces.
//
// It is intentionally small and deterministic to keep behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	authapi "shortly/cmd/internal/auth/api"
	"shortly/cmd/internal/auth/session"
	"shortly/cmd/internal/links"
	"shortly/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the Shortly server runtime. It owns the database pool lifecycle and
// the HTTP server wiring.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	metrics *Metrics

	auth  *authapi.Handler
	links *links.Handler
}

// New constructs a fully wired App instance from config and logger.
// The database is mandatory: every auth operation needs the store.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: SHORTLY_DATABASE_URL is required")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}

	auth, err := authapi.NewHandler(log, pool, authapi.LoadConfigFromEnv(), sessCfg, pwCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	linkHandler := links.NewHandler(log, pool, links.LoadHandlerConfigFromEnv(), pwCfg, auth.SessionService())

	return &App{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		metrics: NewMetrics(),
		auth:    auth,
		links:   linkHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.pool, a.auth, a.links, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestObservability(mux, a.log, a.metrics),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.pool.Close()
	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
