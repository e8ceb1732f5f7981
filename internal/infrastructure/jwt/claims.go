package jwtinfra

import (
	"time"

	"github.com/go-passwordless/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields. Audience and subject are plain strings
// on the wire, never arrays. Verified is a pointer so that an absent claim can
// be told apart from an explicit false.
type Claims struct {
	ExpiresAt int64  `json:"exp"`
	Audience  string `json:"aud,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Verified  *bool  `json:"verified,omitempty"`
}

var _ jwt.Claims = (*Claims)(nil)

func claimsFromPayload(p domain.TokenPayload) *Claims {
	c := &Claims{
		ExpiresAt: p.ExpiresAt,
		Audience:  p.Audience,
		Subject:   p.Subject,
	}
	if p.Verified {
		v := true
		c.Verified = &v
	}
	return c
}

// Payload converts the claims back to the domain representation.
func (c *Claims) Payload() domain.TokenPayload {
	return domain.TokenPayload{
		ExpiresAt: c.ExpiresAt,
		Audience:  c.Audience,
		Subject:   c.Subject,
		Verified:  c.Verified != nil && *c.Verified,
	}
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)  { return nil, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error)              { return "", nil }
func (c *Claims) GetSubject() (string, error)             { return c.Subject, nil }

func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}
