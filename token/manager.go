// Package token issues and parses the signed session-reference tokens the
// middleware hands to clients. A token carries nothing but a session ID and
// standard time claims; every decision about the session happens server-side.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for any token that fails signature, time, or
// claim validation. Callers get no finer detail by design.
var ErrTokenInvalid = errors.New("invalid session token")

// Config parameterizes a Manager.
type Config struct {
	// SigningKey is the HS256 key, at least 32 bytes.
	SigningKey []byte
	// TTL bounds token validity. Keep it aligned with the session lifetime;
	// the session record in Redis is the source of truth either way.
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// Manager signs and verifies session-reference tokens.
type Manager struct {
	config Config
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token referencing the given session ID.
func (m *Manager) Issue(sessionID string) (string, error) {
	if m == nil {
		return "", errors.New("manager not initialized")
	}
	if sessionID == "" {
		return "", errors.New("session id required")
	}

	now := time.Now()
	claims := sessionClaims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.SigningKey)
}

// Parse verifies a token and returns the session ID it references.
func (m *Manager) Parse(tokenString string) (string, error) {
	if m == nil {
		return "", errors.New("manager not initialized")
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.config.SigningKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if claims.SID == "" {
		return "", ErrTokenInvalid
	}
	return claims.SID, nil
}
