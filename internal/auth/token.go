package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeRefresh           Purpose = "refresh"
	PurposeEmailConfirmation Purpose = "email-confirmation"
	PurposePasswordReset     Purpose = "password-reset"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidPurpose = errors.New("invalid token purpose")
	ErrMalformedToken = errors.New("malformed token")
)

type Claims struct {
	Purpose Purpose `json:"scope"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the service's bearer credentials. The
// secret is fixed for the lifetime of the codec.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	return &TokenCodec{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{secret: c.secret, now: now}
}

func (c *TokenCodec) Issue(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("issue %s token: ttl must be positive", purpose)
	}

	now := c.now().UTC()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Decode verifies signature, expiry and purpose and returns the subject.
func (c *TokenCodec) Decode(token string, expected Purpose) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case err != nil || !parsed.Valid:
		return "", ErrMalformedToken
	}

	if claims.Purpose != expected {
		return "", ErrInvalidPurpose
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrMalformedToken
	}

	return claims.Subject, nil
}
