package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a session token is empty or its claim set
// cannot be decoded.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set issued by the portal's auth server.
// Signatures are checked by the server; this side only reads the claims.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	Username string `json:"username"`
	UserID   int64  `json:"userId"`
}

// User is the identity view reconstructed from a token.
type User struct {
	ID        int64      `json:"userId"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// DecodeClaims parses the compact token and returns its claims without
// verifying the signature.
func DecodeClaims(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// User builds the user-details view of the claims.
func (c *Claims) User() User {
	u := User{
		ID:       c.UserID,
		Username: c.Username,
		Role:     c.Role,
	}
	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.UTC()
		u.ExpiresAt = &exp
	}
	return u
}
