package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-passwordless/internal/application/token"
	"github.com/go-passwordless/internal/application/verification"
	"github.com/go-passwordless/internal/domain"
	"github.com/go-passwordless/internal/pkg/validate"
	"golang.org/x/text/language"
)

// CodeSender delivers a verification code to an address.
type CodeSender interface {
	SendAuthenticationCode(ctx context.Context, lang language.Tag, address, code string) error
}

// Decoder reads claims from a token without checking its signature.
type Decoder interface {
	DecodeSubject(token string) (string, error)
	DecodeVerified(token string) (bool, error)
}

// LanguageMatcher picks a supported language for a client preference.
type LanguageMatcher interface {
	Match(accept string) language.Tag
}

// Auditor records the outcome of each transition.
type Auditor interface {
	Record(ctx context.Context, channel, address, action, outcome string)
}

// AddressLimiter caps code requests per address.
type AddressLimiter interface {
	Allow(ctx context.Context, channel, address string) error
}

// Controller drives the passwordless protocol for one channel:
//
//  1. Authenticate sends a code and returns an unverified token.
//  2. VerifyCode exchanges the code and unverified token for a verified token.
//  3. VerifyToken refreshes a verified token.
//
// AuthorizeSubject lets other APIs accept verified tokens.
type Controller interface {
	Channel() Channel
	Authenticate(ctx context.Context, body []byte, lang string) (domain.TokenEnvelope, error)
	VerifyCode(ctx context.Context, body []byte) (domain.TokenEnvelope, error)
	VerifyToken(ctx context.Context, body []byte) (domain.TokenEnvelope, error)
	AuthorizeSubject(token string) (string, error)
}

// Options wires a Controller. Languages, Audit and Limiter are optional.
type Options struct {
	Channel         Channel
	Tokens          token.Service
	Codes           verification.CodeStore
	Messages        CodeSender
	Decoder         Decoder
	Languages       LanguageMatcher
	DefaultLanguage language.Tag
	Audit           Auditor
	Limiter         AddressLimiter
}

type controller struct {
	ch          Channel
	tokens      token.Service
	codes       verification.CodeStore
	messages    CodeSender
	decoder     Decoder
	languages   LanguageMatcher
	defaultLang language.Tag
	audit       Auditor
	limiter     AddressLimiter
}

func NewController(opts Options) Controller {
	c := &controller{
		ch:          opts.Channel,
		tokens:      opts.Tokens,
		codes:       opts.Codes,
		messages:    opts.Messages,
		decoder:     opts.Decoder,
		languages:   opts.Languages,
		defaultLang: opts.DefaultLanguage,
		audit:       opts.Audit,
		limiter:     opts.Limiter,
	}
	if c.defaultLang == language.Und {
		c.defaultLang = language.English
	}
	return c
}

func (c *controller) Channel() Channel { return c.ch }

func (c *controller) Authenticate(ctx context.Context, body []byte, lang string) (env domain.TokenEnvelope, err error) {
	var address string
	defer c.finish(ctx, domain.ActionRequestCode, &address, &env, &err)

	obj, err := decodeObject(body, c.ch.AddressKey)
	if err != nil {
		return env, err
	}
	candidate, err := stringField(obj, c.ch.AddressKey)
	if err != nil {
		return env, err
	}
	if verr := validate.Var(candidate, c.ch.AddressRule); verr != nil {
		return env, malformed("%s: %v", c.ch.AddressKey, verr)
	}
	// Only a validated address is audited.
	address = candidate

	if c.limiter != nil {
		if lerr := c.limiter.Allow(ctx, c.ch.Name, address); lerr != nil {
			if errors.Is(lerr, domain.ErrRateLimited) {
				return env, lerr
			}
			slog.Warn("request limiter unavailable, allowing request", "channel", c.ch.Name, "err", lerr)
		}
	}

	code, err := c.codes.CreateCode(address)
	if err != nil {
		return env, fmt.Errorf("create code: %v: %w", err, domain.ErrInternal)
	}
	env, err = c.tokens.CreateUnverifiedToken(address)
	if err != nil {
		return env, err
	}

	if serr := c.messages.SendAuthenticationCode(ctx, c.language(lang), address, code); serr != nil {
		slog.Error("could not send authentication code", "channel", c.ch.Name, "to", address, "err", serr)
		if rerr := c.codes.RemoveCode(address, code); rerr != nil {
			slog.Warn("could not remove undelivered code", "channel", c.ch.Name, "err", rerr)
		}
		return env, fmt.Errorf("%s to %q: %w", c.ch.Name, address, domain.ErrDeliveryFailed)
	}
	return env, nil
}

// VerifyCode checks the token before consuming the code so that a request
// with a bad token cannot burn a valid code.
func (c *controller) VerifyCode(ctx context.Context, body []byte) (env domain.TokenEnvelope, err error) {
	var address string
	defer c.finish(ctx, domain.ActionVerifyCode, &address, &env, &err)

	obj, err := decodeObject(body, "token", "code")
	if err != nil {
		return env, err
	}
	code, err := stringField(obj, "code")
	if err != nil {
		return env, err
	}
	unverified, err := c.ch.decodeEnvelope(obj, "token")
	if err != nil {
		return env, err
	}
	address = unverified.Address

	if !c.tokens.VerifyToken(address, unverified.Token, false) {
		return env, fmt.Errorf("unverified token: %w", domain.ErrAccessDenied)
	}
	if !c.codes.VerifyCode(address, code) {
		return env, fmt.Errorf("code: %w", domain.ErrAccessDenied)
	}
	return c.tokens.CreateVerifiedToken(address)
}

func (c *controller) VerifyToken(ctx context.Context, body []byte) (env domain.TokenEnvelope, err error) {
	var address string
	defer c.finish(ctx, domain.ActionVerifyToken, &address, &env, &err)

	obj, err := decodeObject(body, "token")
	if err != nil {
		return env, err
	}
	verified, err := c.ch.decodeEnvelope(obj, "token")
	if err != nil {
		return env, err
	}
	address = verified.Address

	if !c.tokens.VerifyToken(address, verified.Token, true) {
		return env, fmt.Errorf("verified token: %w", domain.ErrAccessDenied)
	}
	return c.tokens.CreateVerifiedToken(address)
}

// AuthorizeSubject returns the address a valid, verified-stage token was
// issued for.
func (c *controller) AuthorizeSubject(tok string) (subject string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("authorize subject panic", "channel", c.ch.Name, "panic", r)
			subject, err = "", fmt.Errorf("authorize subject: %w", domain.ErrInternal)
		}
	}()

	if tok == "" || !c.tokens.IsTokenValid(tok) {
		return "", fmt.Errorf("token invalid: %w", domain.ErrAccessDenied)
	}
	verified, derr := c.decoder.DecodeVerified(tok)
	if derr != nil || !verified {
		return "", fmt.Errorf("token not verified: %w", domain.ErrAccessDenied)
	}
	subject, derr = c.decoder.DecodeSubject(tok)
	if derr != nil {
		return "", fmt.Errorf("token has no subject: %w", domain.ErrAccessDenied)
	}
	return subject, nil
}

func (c *controller) language(lang string) language.Tag {
	if c.languages != nil {
		return c.languages.Match(lang)
	}
	if tag, err := language.Parse(lang); err == nil && lang != "" {
		return tag
	}
	return c.defaultLang
}

// finish runs deferred on every transition. It turns a panic into
// ErrInternal, guarantees no envelope accompanies an error, and records the
// outcome.
func (c *controller) finish(ctx context.Context, action string, address *string, env *domain.TokenEnvelope, err *error) {
	if r := recover(); r != nil {
		slog.Error("auth controller panic", "channel", c.ch.Name, "action", action, "panic", r)
		*err = fmt.Errorf("%s %s: %w", c.ch.Name, action, domain.ErrInternal)
	}
	if *err != nil {
		*env = domain.TokenEnvelope{}
		slog.Debug("auth transition failed", "channel", c.ch.Name, "action", action, "err", *err)
	}
	if c.audit != nil && *address != "" {
		c.audit.Record(ctx, c.ch.Name, *address, action, Outcome(*err))
	}
}

// Outcome classifies a controller error for auditing.
func Outcome(err error) string {
	switch {
	case err == nil:
		return domain.OutcomeSuccess
	case errors.Is(err, domain.ErrMalformedInput):
		return domain.OutcomeMalformed
	case errors.Is(err, domain.ErrAccessDenied):
		return domain.OutcomeDenied
	case errors.Is(err, domain.ErrRateLimited):
		return domain.OutcomeRateLimited
	case errors.Is(err, domain.ErrDeliveryFailed):
		return domain.OutcomeDeliveryFailed
	default:
		return domain.OutcomeInternal
	}
}
