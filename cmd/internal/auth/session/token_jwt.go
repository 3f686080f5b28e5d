package session

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenType = "access"

// AccessClaims is the identity envelope carried by a verified access token.
type AccessClaims struct {
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessTokenManager issues and verifies short-lived access tokens.
// Both operations are pure functions of the secret and the supplied clock:
// no storage or network access.
type AccessTokenManager interface {
	Issue(userID int64, username string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

type accessClaimsJWT struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	TokenType string `json:"type"`
}

type hs256Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewHS256Manager builds an AccessTokenManager signing HS256 JWTs with the
// configured server secret.
func NewHS256Manager(cfg Config) (AccessTokenManager, error) {
	if len(cfg.JWTSecret) < 32 || cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}
	return &hs256Manager{secret: cfg.JWTSecret, ttl: cfg.AccessTokenTTL}, nil
}

func (m *hs256Manager) Issue(userID int64, username string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	claims := accessClaimsJWT{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username:  username,
		TokenType: accessTokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *hs256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	var claims accessClaimsJWT

	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrTokenExpired
		}
		return AccessClaims{}, ErrTokenInvalid
	}
	if !parsed.Valid || claims.TokenType != accessTokenType {
		return AccessClaims{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.Username == "" {
		return AccessClaims{}, ErrTokenInvalid
	}

	out := AccessClaims{
		UserID:   userID,
		Username: claims.Username,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
