// Package auth issues and validates the operator tokens that guard the sync
// write endpoints.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sellerdash/backend/internal/infrastructure/config"
)

// Scopes granted to operator tokens
const (
	ScopeSyncWrite = "sync:write"
	ScopeReadOnly  = "dashboard:read"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
	ErrMissingScope     = errors.New("token lacks the required scope")
	ErrNoSecret         = errors.New("token secret is not configured")
)

// Claims are the operator token claims
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the token grants scope
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// TokenService signs and validates HS256 operator tokens
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service from the auth configuration
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// Enabled reports whether a secret is configured
func (s *TokenService) Enabled() bool {
	return len(s.secret) > 0
}

// Issue signs a token for subject. A zero ttl uses the configured lifetime.
func (s *TokenService) Issue(subject string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scopes: scopes,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses tokenString and returns its claims
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
