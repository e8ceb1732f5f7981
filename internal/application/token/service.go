package token

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-passwordless/internal/domain"
	jwtinfra "github.com/go-passwordless/internal/infrastructure/jwt"
)

const (
	DefaultUnverifiedTTL = 5 * time.Minute
	DefaultVerifiedTTL   = 365 * 24 * time.Hour
)

// Engine is the signature primitive the service signs and verifies with.
type Engine interface {
	Sign(payload domain.TokenPayload, alg string) (string, error)
	Verify(token, alg string) bool
	DefaultAlgorithm() string
}

// Config is fixed at construction. An empty Algorithm uses the engine default.
type Config struct {
	UnverifiedTTL time.Duration
	VerifiedTTL   time.Duration
	Algorithm     string
	Now           func() time.Time
}

// Service issues and checks the two token stages. An unverified token names
// the challenged address in "aud"; a verified token names it in "sub".
type Service interface {
	CreateUnverifiedToken(address string) (domain.TokenEnvelope, error)
	CreateVerifiedToken(address string) (domain.TokenEnvelope, error)
	VerifyToken(address, token string, requireVerified bool) bool
	VerifyTokenOnly(token string, requireVerified bool) bool
	IsTokenValid(token string) bool
	IsTokenVerified(token string) bool
	VerifyValidTokenForSubject(token, address string) bool
	TokenSubject(token string) (string, bool)
	TokenAudience(token string) (string, bool)
}

type service struct {
	engine        Engine
	alg           string
	unverifiedTTL time.Duration
	verifiedTTL   time.Duration
	now           func() time.Time
}

func NewService(engine Engine, cfg Config) Service {
	s := &service{
		engine:        engine,
		alg:           cfg.Algorithm,
		unverifiedTTL: cfg.UnverifiedTTL,
		verifiedTTL:   cfg.VerifiedTTL,
		now:           cfg.Now,
	}
	if s.alg == "" {
		s.alg = engine.DefaultAlgorithm()
	}
	if s.unverifiedTTL <= 0 {
		s.unverifiedTTL = DefaultUnverifiedTTL
	}
	if s.verifiedTTL <= 0 {
		s.verifiedTTL = DefaultVerifiedTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) CreateUnverifiedToken(address string) (domain.TokenEnvelope, error) {
	tok, err := s.sign(address, domain.TokenPayload{
		Audience:  address,
		ExpiresAt: s.now().Add(s.unverifiedTTL).Unix(),
	})
	if err != nil {
		return domain.TokenEnvelope{}, err
	}
	return domain.TokenEnvelope{Token: tok, Address: address}, nil
}

func (s *service) CreateVerifiedToken(address string) (domain.TokenEnvelope, error) {
	tok, err := s.sign(address, domain.TokenPayload{
		Subject:   address,
		Verified:  true,
		ExpiresAt: s.now().Add(s.verifiedTTL).Unix(),
	})
	if err != nil {
		return domain.TokenEnvelope{}, err
	}
	return domain.TokenEnvelope{Token: tok, Address: address, Verified: true}, nil
}

func (s *service) sign(address string, payload domain.TokenPayload) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address is required: %w", domain.ErrInvalidArgument)
	}
	tok, err := s.engine.Sign(payload, s.alg)
	if err != nil {
		slog.Error("could not sign token", "address", address, "err", err)
		return "", fmt.Errorf("sign token for %q: %w", address, domain.ErrSigningFailed)
	}
	if tok == "" {
		slog.Error("engine returned an empty token", "address", address)
		return "", fmt.Errorf("sign token for %q: %w", address, domain.ErrSigningFailed)
	}
	return tok, nil
}

// VerifyToken checks the signature and that the stage claim names address:
// "sub" when requireVerified, "aud" otherwise. A token whose unverified
// claim already names another address is rejected before the signature check.
func (s *service) VerifyToken(address, token string, requireVerified bool) bool {
	if address == "" {
		slog.Debug("verify token: no address provided")
		return false
	}
	claimed, ok := s.TokenAudience(token)
	if requireVerified {
		claimed, ok = s.TokenSubject(token)
	}
	if !ok || claimed != address {
		slog.Debug("verify token: claim does not name address", "address", address)
		return false
	}
	claims, ok := s.verified(token)
	if !ok {
		return false
	}
	if requireVerified {
		if claims.Subject != address {
			slog.Debug("verify token: sub did not match", "sub", claims.Subject, "address", address)
			return false
		}
		return true
	}
	if claims.Audience != address {
		slog.Debug("verify token: aud did not match", "aud", claims.Audience, "address", address)
		return false
	}
	return true
}

// VerifyTokenOnly checks the signature and the presence of the stage claim.
func (s *service) VerifyTokenOnly(token string, requireVerified bool) bool {
	claims, ok := s.verified(token)
	if !ok {
		return false
	}
	if requireVerified {
		return claims.Subject != ""
	}
	return claims.Audience != ""
}

func (s *service) IsTokenValid(token string) bool {
	_, ok := s.verified(token)
	return ok
}

func (s *service) IsTokenVerified(token string) bool {
	claims, ok := s.verified(token)
	return ok && claims.Verified != nil && *claims.Verified
}

// VerifyValidTokenForSubject never accepts an unverified-stage token since
// those carry no "sub".
func (s *service) VerifyValidTokenForSubject(token, address string) bool {
	if address == "" {
		return false
	}
	claims, ok := s.verified(token)
	return ok && claims.Subject == address
}

func (s *service) TokenSubject(token string) (string, bool) {
	sub, err := jwtinfra.DecodeSubject(token)
	if err != nil {
		slog.Debug("token subject: decode failed", "err", err)
		return "", false
	}
	return sub, true
}

func (s *service) TokenAudience(token string) (string, bool) {
	aud, err := jwtinfra.DecodeAudience(token)
	if err != nil {
		slog.Debug("token audience: decode failed", "err", err)
		return "", false
	}
	return aud, true
}

// verified checks the signature and decodes the claims.
func (s *service) verified(token string) (*jwtinfra.Claims, bool) {
	if token == "" {
		slog.Debug("verify token: no token provided")
		return nil, false
	}
	if !s.engine.Verify(token, s.alg) {
		slog.Debug("verify token: signature invalid or token expired")
		return nil, false
	}
	claims, err := jwtinfra.DecodePayload(token)
	if err != nil {
		slog.Debug("verify token: payload decode failed", "err", err)
		return nil, false
	}
	return claims, true
}
