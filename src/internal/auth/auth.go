// Package auth adapts the external session provider to the backup engine.
// Session issuance lives elsewhere; this package only verifies credentials
// presented on incoming requests and resolves them to a user and role.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrNoCredential = errors.New("no credentials provided")
)

// Role is the closed set of operator roles
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// CanManageBackups reports whether the role may create or delete backups
func (r Role) CanManageBackups() bool {
	return r == RoleAdmin
}

// CanDownloadBackups reports whether the role may download backup files
func (r Role) CanDownloadBackups() bool {
	return r == RoleAdmin || r == RoleManager
}

// Session identifies the authenticated requester
type Session struct {
	UserID string
	Role   Role
}

// Provider authenticates an incoming request
type Provider interface {
	Authenticate(r *http.Request) (*Session, error)
}

// Claims represents JWT claims issued by the dashboard's session service
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTProvider validates HS256 bearer tokens
type JWTProvider struct {
	secretKey []byte
}

// NewJWTProvider creates a JWT-backed session provider
func NewJWTProvider(secretKey string) *JWTProvider {
	return &JWTProvider{secretKey: []byte(secretKey)}
}

// Authenticate validates the Authorization bearer token
func (p *JWTProvider) Authenticate(r *http.Request) (*Session, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, ErrNoCredential
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	role := Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return nil, ErrInvalidToken
	}

	return &Session{UserID: claims.UserID, Role: role}, nil
}

// IssueToken signs a short-lived token for the given user. Used by tests
// and by the CLI when talking to a local server.
func (p *JWTProvider) IssueToken(userID string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secretKey)
}

// TokenProvider accepts a single static API token, stored as a bcrypt hash.
// It exists for machine-to-machine use where minting JWTs is impractical.
type TokenProvider struct {
	tokenHash []byte
	userID    string
	role      Role
}

// NewTokenProvider creates a static token provider. tokenHash is a bcrypt
// hash of the shared secret.
func NewTokenProvider(tokenHash, userID string, role Role) *TokenProvider {
	return &TokenProvider{
		tokenHash: []byte(tokenHash),
		userID:    userID,
		role:      role,
	}
}

// Authenticate compares the presented token against the stored hash
func (p *TokenProvider) Authenticate(r *http.Request) (*Session, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, ErrNoCredential
	}
	if err := bcrypt.CompareHashAndPassword(p.tokenHash, []byte(raw)); err != nil {
		return nil, ErrInvalidToken
	}
	return &Session{UserID: p.userID, Role: p.role}, nil
}

// Chain tries each provider in order, returning the first success. A
// provider reporting ErrNoCredential does not stop the chain.
type Chain []Provider

// Authenticate implements Provider
func (c Chain) Authenticate(r *http.Request) (*Session, error) {
	var lastErr error = ErrNoCredential
	for _, p := range c {
		session, err := p.Authenticate(r)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrNoCredential) {
			lastErr = err
		}
	}
	return nil, lastErr
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
