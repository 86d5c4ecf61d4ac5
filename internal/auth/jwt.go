package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes granted to API callers. Read covers reports and diagnostics;
// operate additionally covers report generation and capacity mutation.
const (
	ScopeRead    = "read"
	ScopeOperate = "operate"
)

// Claims represents JWT claims with custom fields
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims carry the required scope. Operate
// implies read.
func (c *Claims) HasScope(scope string) bool {
	if c.Scope == ScopeOperate {
		return true
	}
	return c.Scope == scope
}

// Auth issues and validates shared-secret HS256 service tokens
type Auth struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuth creates a new Auth instance
func NewAuth(jwtSecret string, tokenTTL time.Duration) *Auth {
	return &Auth{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// GenerateToken issues a token for a caller with the given scope
func (a *Auth) GenerateToken(subject, scope string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "costctl",
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates and parses a service token
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
