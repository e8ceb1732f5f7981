package jwtinfra

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// The helpers below read claims without checking the signature. Callers must
// only trust the result after the token has been verified by a Provider.

var parser = jwt.NewParser()

// DecodePayload returns the claims of tokenStr without verifying it.
func DecodePayload(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return claims, nil
}

func DecodeAudience(tokenStr string) (string, error) {
	c, err := DecodePayload(tokenStr)
	if err != nil {
		return "", err
	}
	if c.Audience == "" {
		return "", errors.New(`decode payload: "aud" missing`)
	}
	return c.Audience, nil
}

func DecodeSubject(tokenStr string) (string, error) {
	c, err := DecodePayload(tokenStr)
	if err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", errors.New(`decode payload: "sub" missing`)
	}
	return c.Subject, nil
}

func DecodeVerified(tokenStr string) (bool, error) {
	c, err := DecodePayload(tokenStr)
	if err != nil {
		return false, err
	}
	if c.Verified == nil {
		return false, errors.New(`decode payload: "verified" missing`)
	}
	return *c.Verified, nil
}

// Decoder exposes the decode helpers as a value so they can be injected.
type Decoder struct{}

func (Decoder) DecodeAudience(tokenStr string) (string, error) { return DecodeAudience(tokenStr) }
func (Decoder) DecodeSubject(tokenStr string) (string, error)  { return DecodeSubject(tokenStr) }
func (Decoder) DecodeVerified(tokenStr string) (bool, error)   { return DecodeVerified(tokenStr) }
