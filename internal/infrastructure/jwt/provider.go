package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/go-passwordless/internal/config"
	"github.com/go-passwordless/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when neither the options nor the caller name one.
const DefaultAlgorithm = "HS256"

var supportedAlgorithms = map[string]bool{
	"HS256": true, "HS384": true, "HS512": true,
	"RS256": true, "RS384": true, "RS512": true,
}

// Options configures a Provider. HMAC algorithms use Secret; RSA algorithms
// sign with PrivateKey and verify with PublicKey (or the private key's public half).
type Options struct {
	DefaultAlgorithm string
	Secret           []byte
	PrivateKey       *rsa.PrivateKey
	PublicKey        *rsa.PublicKey
	// Now overrides the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Provider signs and verifies tokens. It is immutable after construction and
// safe for concurrent use.
type Provider struct {
	defaultAlg string
	secret     []byte
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	now        func() time.Time
}

func NewProvider(opts Options) (*Provider, error) {
	p := &Provider{
		defaultAlg: opts.DefaultAlgorithm,
		secret:     opts.Secret,
		privateKey: opts.PrivateKey,
		publicKey:  opts.PublicKey,
		now:        opts.Now,
	}
	if p.defaultAlg == "" {
		p.defaultAlg = DefaultAlgorithm
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.publicKey == nil && p.privateKey != nil {
		p.publicKey = &p.privateKey.PublicKey
	}
	if err := p.checkAlgorithm(p.defaultAlg); err != nil {
		return nil, err
	}
	return p, nil
}

// NewProviderFromConfig builds a Provider from the RSA key files and/or the
// HMAC secret in cfg. The HMAC key is derived from JWT_SECRET, never used raw.
func NewProviderFromConfig(cfg *config.Config) (*Provider, error) {
	opts := Options{DefaultAlgorithm: cfg.JWTAlgorithm}
	if cfg.JWTSecret != "" {
		key, err := DeriveSigningKey(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		opts.Secret = key
	}
	if cfg.JWTPrivateKeyPath != "" {
		key, err := LoadRSAPrivateKey(cfg.JWTPrivateKeyPath)
		if err != nil {
			return nil, err
		}
		opts.PrivateKey = key
	}
	if cfg.JWTPublicKeyPath != "" {
		key, err := LoadRSAPublicKey(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, err
		}
		opts.PublicKey = key
	}
	return NewProvider(opts)
}

// DefaultAlgorithm returns the algorithm used when Sign or Verify get an empty alg.
func (p *Provider) DefaultAlgorithm() string { return p.defaultAlg }

// WithDefaultAlgorithm returns a copy of p with a different default algorithm.
// p itself is left unchanged.
func (p *Provider) WithDefaultAlgorithm(alg string) (*Provider, error) {
	if err := p.checkAlgorithm(alg); err != nil {
		return nil, err
	}
	cp := *p
	cp.defaultAlg = alg
	return &cp, nil
}

// Sign encodes payload as a JWT signed with alg (or the default algorithm).
func (p *Provider) Sign(payload domain.TokenPayload, alg string) (string, error) {
	if alg == "" {
		alg = p.defaultAlg
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil || !supportedAlgorithms[alg] {
		return "", fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	key, err := p.signingKey(method)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(method, claimsFromPayload(payload)).SignedString(key)
}

// Verify reports whether token carries a valid alg signature and an unexpired exp claim.
func (p *Provider) Verify(tokenStr, alg string) bool {
	_, err := p.Parse(tokenStr, alg)
	return err == nil
}

// Parse verifies tokenStr and returns its claims.
func (p *Provider) Parse(tokenStr, alg string) (*Claims, error) {
	if alg == "" {
		alg = p.defaultAlg
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.verifyKey(t.Method)
	},
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (p *Provider) checkAlgorithm(alg string) error {
	if !supportedAlgorithms[alg] {
		return fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	switch jwt.GetSigningMethod(alg).(type) {
	case *jwt.SigningMethodHMAC:
		if len(p.secret) == 0 {
			return fmt.Errorf("%s requires a secret", alg)
		}
	case *jwt.SigningMethodRSA:
		if p.privateKey == nil && p.publicKey == nil {
			return fmt.Errorf("%s requires an RSA key", alg)
		}
	}
	return nil
}

func (p *Provider) signingKey(method jwt.SigningMethod) (interface{}, error) {
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(p.secret) == 0 {
			return nil, errors.New("no HMAC secret configured")
		}
		return p.secret, nil
	case *jwt.SigningMethodRSA:
		if p.privateKey == nil {
			return nil, errors.New("no RSA private key configured")
		}
		return p.privateKey, nil
	}
	return nil, fmt.Errorf("unsupported signing method %q", method.Alg())
}

func (p *Provider) verifyKey(method jwt.SigningMethod) (interface{}, error) {
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(p.secret) == 0 {
			return nil, errors.New("no HMAC secret configured")
		}
		return p.secret, nil
	case *jwt.SigningMethodRSA:
		if p.publicKey == nil {
			return nil, errors.New("no RSA public key configured")
		}
		return p.publicKey, nil
	}
	return nil, errors.New("unexpected signing method")
}
