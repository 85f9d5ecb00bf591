package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/classroom-service/internal/cache"
)

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrSessionRevoked = errors.New("session revoked")
)

const sessionIssuer = "classroom-service"

// SessionClaims is the payload of the session cookie. ID (jti) is the session id.
type SessionClaims struct {
	Email  string `json:"email"`
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// SessionID returns the jti claim
func (c *SessionClaims) SessionID() string {
	return c.ID
}

// SessionManager issues and validates HS256 session tokens. Revocation is
// recorded in redis when a cache is available; without one, logout only
// clears the cookie and the token stays valid until it expires.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	revoked *cache.CacheHelper
	now     func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, revoked *cache.CacheHelper) *SessionManager {
	return &SessionManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session for the given user
func (m *SessionManager) Issue(userID, email string) (string, *SessionClaims, error) {
	now := m.now()
	claims := &SessionClaims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    sessionIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, claims, nil
}

// Validate parses the token and checks the revocation list. A cache read
// failure is not treated as revocation.
func (m *SessionManager) Validate(ctx context.Context, token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Email == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}

	if m.revoked.Enabled() {
		revoked, err := m.revoked.Exists(ctx, claims.ID)
		if err == nil && revoked {
			return nil, ErrSessionRevoked
		}
	}
	return claims, nil
}

// Revoke marks the session id as revoked until the token would have expired
func (m *SessionManager) Revoke(ctx context.Context, claims *SessionClaims) error {
	if claims == nil || !m.revoked.Enabled() {
		return nil
	}
	ttl := m.ttl
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(m.now())
	}
	if ttl <= 0 {
		return nil
	}
	return m.revoked.Mark(ctx, claims.ID, ttl)
}
