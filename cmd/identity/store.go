package identity

import (
	"context"
	"time"
)

// User is the canonical security principal.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Summary is the identity payload exposed to authenticated callers.
type Summary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the public view of a user.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// CreateUserInput describes a registration request. Password must already be
// hashed; policy enforcement happens before the store is reached.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Now          time.Time
}

// Store is the user persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdateEmail(ctx context.Context, id int64, email string) error
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}
