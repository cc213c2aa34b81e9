package supabase

import (
	"fmt"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims continu reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// UserID is the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// ParseClaims decodes token without verifying its signature; the signing
// secret lives with the Supabase project. Use it to read expiry and
// identity, never to authorise anything.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", common.ErrInvalidToken)
	}
	return claims, nil
}
