package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"shortly/cmd/security/password"
)

const generateAttempts = 5

// Service implements link shortening on top of a Store.
type Service struct {
	store Store
	pw    password.Config
}

// NewService constructs a link Service. Link passwords are access codes, not
// login credentials, so the account policy is relaxed here; only the hashing
// parameters carry over.
func NewService(store Store, pw password.Config) *Service {
	pw.Policy = password.Policy{MinLength: 1, MaxLength: 256}
	return &Service{store: store, pw: pw}
}

// CreateInput describes a shortening request with plain-text fields.
type CreateInput struct {
	UserID      *int64
	OriginalURL string
	CustomCode  string
	Password    string
	ExpiresAt   *time.Time
}

// Create validates the request and inserts the link. Without a custom code a
// random 8-character code is generated, retrying on the rare collision.
func (s *Service) Create(ctx context.Context, now time.Time, in CreateInput) (Link, error) {
	original, err := normalizeURL(in.OriginalURL)
	if err != nil {
		return Link{}, err
	}

	var pwHash *string
	if in.Password != "" {
		hash, err := s.pw.Hash(in.Password)
		if err != nil {
			return Link{}, err
		}
		pwHash = &hash
	}

	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return Link{}, ErrInvalidExpiry
	}

	base := CreateLinkInput{
		UserID:       in.UserID,
		OriginalURL:  original,
		PasswordHash: pwHash,
		ExpiresAt:    in.ExpiresAt,
		Now:          now,
	}

	if custom := strings.TrimSpace(in.CustomCode); custom != "" {
		if !ValidCode(custom) {
			return Link{}, ErrInvalidCode
		}
		base.ShortCode = custom
		return s.store.CreateLink(ctx, base)
	}

	for range generateAttempts {
		code, err := generateCode()
		if err != nil {
			return Link{}, err
		}
		base.ShortCode = code
		l, err := s.store.CreateLink(ctx, base)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		return l, err
	}
	return Link{}, ErrCodeTaken
}

// Resolve returns the original URL for a code and counts the click.
// Expired links behave exactly like missing ones. Protected links demand the
// correct password before revealing anything beyond their existence.
func (s *Service) Resolve(ctx context.Context, now time.Time, code, pw string) (string, error) {
	l, err := s.store.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	if l.Expired(now) {
		return "", ErrNotFound
	}

	if l.Protected() {
		if pw == "" {
			return "", ErrPasswordRequired
		}
		ok, err := s.pw.Verify(*l.PasswordHash, pw)
		if err != nil || !ok {
			return "", ErrWrongPassword
		}
	}

	if err := s.store.IncrementClicks(ctx, l.ID); err != nil {
		return "", err
	}
	return l.OriginalURL, nil
}

// Stats returns usage statistics for a code. Expired links stay visible to
// their statistics readers until the cleanup job removes them.
func (s *Service) Stats(ctx context.Context, code string) (Stats, error) {
	l, err := s.store.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return Stats{}, err
	}
	return l.Stats(), nil
}

// normalizeURL accepts absolute http/https URLs only.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 2048 {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	return u.String(), nil
}
