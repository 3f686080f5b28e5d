package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL (shortly.users).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed user store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, OpError{Op: "identity.NewPostgresStore", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateUser inserts a new user row and returns it with the assigned id.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.PasswordHash == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username, email and password hash are required"}
	}

	u := User{Username: username, Email: email, PasswordHash: in.PasswordHash}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO shortly.users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, username, email, in.PasswordHash, in.Now).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if field, ok := conflictField(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, OpError{Op: op, Kind: ErrUnavailable, Msg: err.Error()}
	}

	return u, nil
}

// GetUserByID loads a user row by numeric id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.getUser(ctx, "identity.GetUserByID", `WHERE id = $1`, id)
}

// GetUserByUsername loads a user by username (case-insensitive).
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getUser(ctx, "identity.GetUserByUsername", `WHERE lower(username) = $1`, NormalizeUsername(username))
}

// GetUserByEmail loads a user by email (case-insensitive).
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "identity.GetUserByEmail", `WHERE lower(email) = $1`, NormalizeEmail(email))
}

func (s *PostgresStore) getUser(ctx context.Context, op, where string, arg any) (User, error) {
	var u User

	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM shortly.users
	`+where, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrUnavailable, Msg: err.Error()}
	}

	return u, nil
}

// UpdateUsername changes the username, enforcing uniqueness.
func (s *PostgresStore) UpdateUsername(ctx context.Context, id int64, username string) error {
	return s.updateField(ctx, "identity.UpdateUsername", `username`, id, strings.TrimSpace(username))
}

// UpdateEmail changes the email, enforcing uniqueness.
func (s *PostgresStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	return s.updateField(ctx, "identity.UpdateEmail", `email`, id, strings.TrimSpace(email))
}

// UpdatePasswordHash replaces the stored password hash.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return s.updateField(ctx, "identity.UpdatePasswordHash", `password_hash`, id, passwordHash)
}

func (s *PostgresStore) updateField(ctx context.Context, op, column string, id int64, value string) error {
	if value == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: column + " is required"}
	}

	// column is one of three compile-time constants; never user input.
	tag, err := s.pool.Exec(ctx, `
		UPDATE shortly.users SET `+column+` = $2 WHERE id = $1
	`, id, value)
	if err != nil {
		if field, ok := conflictField(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return OpError{Op: op, Kind: ErrUnavailable, Msg: err.Error()}
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// conflictField maps a unique-violation error to the logical field name.
func conflictField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username", true
	default:
		return "", true
	}
}
