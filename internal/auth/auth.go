// Package auth resolves bearer tokens into users and carries them on the request
// context. Tokens are HS256 JWTs; the superuser role is "admin".
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the authenticated principal attached to a request context.
type User struct {
	ID    string
	Email string
	Roles []string
}

// IsSuperuser reports whether the user carries the admin role.
func (u *User) IsSuperuser() bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if role == "admin" {
			return true
		}
	}
	return false
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithUser returns a context carrying the user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user on the context, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(contextKey{}).(*User)
	return user
}

// Service validates and issues JWT bearer tokens.
type Service struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewService creates a token service. An empty secret disables token validation:
// ValidateToken then always fails, which leaves requests anonymous.
func NewService(secretKey string, tokenTTL time.Duration) *Service {
	return &Service{secretKey: secretKey, tokenTTL: tokenTTL}
}

// GenerateToken issues a signed token for the given identity.
func (s *Service) GenerateToken(userID, email string, roles []string) (string, error) {
	if s.secretKey == "" {
		return "", fmt.Errorf("no signing secret configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"roles":   roles,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken validates a bearer token and returns the user it identifies.
func (s *Service) ValidateToken(tokenString string) (*User, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("no signing secret configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Pin the algorithm; never trust the token header alone.
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	user := &User{}
	if id, ok := claims["user_id"].(string); ok {
		user.ID = id
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				user.Roles = append(user.Roles, role)
			}
		}
	}
	if user.ID == "" {
		return nil, fmt.Errorf("token has no user_id claim")
	}
	return user, nil
}
