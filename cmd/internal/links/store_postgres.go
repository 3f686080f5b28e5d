package links

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const linkColumns = `
	id, user_id, original_url, short_code, password_hash,
	clicks, expires_at, created_at
`

// PostgresStore implements Store using PostgreSQL (shortly.links).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateLink inserts a link row and returns it with the assigned id.
func (s *PostgresStore) CreateLink(ctx context.Context, in CreateLinkInput) (Link, error) {
	l := Link{
		UserID:       in.UserID,
		OriginalURL:  in.OriginalURL,
		ShortCode:    in.ShortCode,
		PasswordHash: in.PasswordHash,
		ExpiresAt:    in.ExpiresAt,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO shortly.links (
			user_id, original_url, short_code, password_hash,
			clicks, expires_at, created_at
		) VALUES ($1, $2, $3, $4, 0, $5, $6)
		RETURNING id, created_at
	`, in.UserID, in.OriginalURL, in.ShortCode, in.PasswordHash, in.ExpiresAt, in.Now).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Link{}, ErrCodeTaken
		}
		return Link{}, storeErr(err)
	}

	return l, nil
}

// GetByCode loads a link by its short code.
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (Link, error) {
	var l Link
	err := s.pool.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM shortly.links
		WHERE short_code = $1
	`, code).Scan(
		&l.ID,
		&l.UserID,
		&l.OriginalURL,
		&l.ShortCode,
		&l.PasswordHash,
		&l.Clicks,
		&l.ExpiresAt,
		&l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, storeErr(err)
	}
	return l, nil
}

// IncrementClicks bumps the click counter.
func (s *PostgresStore) IncrementClicks(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE shortly.links SET clicks = clicks + 1 WHERE id = $1
	`, id)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
