package links

import (
	"context"
	"time"
)

// Link mirrors a shortly.links row.
type Link struct {
	ID           int64
	UserID       *int64
	OriginalURL  string
	ShortCode    string
	PasswordHash *string
	Clicks       int64
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// Protected reports whether resolving requires a password.
func (l Link) Protected() bool { return l.PasswordHash != nil && *l.PasswordHash != "" }

// Expired reports whether the link is past its expiry at the given instant.
func (l Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Stats is the per-link statistics payload.
type Stats struct {
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats returns the public statistics view of a link.
func (l Link) Stats() Stats {
	return Stats{
		OriginalURL: l.OriginalURL,
		ShortCode:   l.ShortCode,
		Clicks:      l.Clicks,
		CreatedAt:   l.CreatedAt,
	}
}

// CreateLinkInput describes a new link. Password must already be hashed.
type CreateLinkInput struct {
	UserID       *int64
	OriginalURL  string
	ShortCode    string
	PasswordHash *string
	ExpiresAt    *time.Time
	Now          time.Time
}

// Store is the link persistence boundary.
type Store interface {
	// CreateLink inserts a link row; a short-code collision yields ErrCodeTaken.
	CreateLink(ctx context.Context, in CreateLinkInput) (Link, error)

	// GetByCode loads a link by its short code regardless of expiry.
	GetByCode(ctx context.Context, code string) (Link, error)

	// IncrementClicks bumps the click counter for a resolved link.
	IncrementClicks(ctx context.Context, id int64) error
}
